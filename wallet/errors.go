package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrInvalidNetwork indicates unknown network name.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrSigningKeyUnavailable indicates a signing request while the key ring is locked.
	ErrSigningKeyUnavailable = errors.New("wallet: signing key unavailable (wallet locked)")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("wallet: signing failed")

	// ErrInvalidAddress indicates a cashaddr string failed to decode.
	ErrInvalidAddress = errors.New("wallet: invalid address")

	// ErrAddressNetworkMismatch indicates the address prefix belongs to another network.
	ErrAddressNetworkMismatch = errors.New("wallet: address belongs to a different network")
)
