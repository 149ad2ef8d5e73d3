package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

const (
	// BIP44 path constants. The path is fixed: changing any of these changes
	// every derived address.
	PurposeBIP44  = 44
	CoinTypeECash = 1899
	Account       = 0
	ExternalChain = 0
	AddressIndex  = 0

	// DerivationPath is the human-readable form of the fixed path.
	DerivationPath = "m/44'/1899'/0'/0/0"

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// ActiveKey is the single signing key of a wallet session.
type ActiveKey struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	PubKeyHash []byte         `json:"pubkey_hash"` // hash160 of the compressed key
	Address    string         `json:"address"`     // cashaddr for the network
	Path       string         `json:"path"`
}

// DeriveActiveKey derives the wallet key at DerivationPath. It is a pure
// function of seed and network.
func DeriveActiveKey(seed []byte, network *NetworkConfig) (*ActiveKey, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &MainNet
	}

	master, err := bip32.NewMaster(seed, network.chainParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	steps := []struct {
		name  string
		index uint32
	}{
		{"purpose", PurposeBIP44 + Hardened},
		{"coin type", CoinTypeECash + Hardened},
		{"account", Account + Hardened},
		{"chain", ExternalChain},
		{"index", AddressIndex},
	}

	key := master
	for _, step := range steps {
		key, err = key.Child(step.index)
		if err != nil {
			return nil, fmt.Errorf("%w: %s derivation: %w", ErrDerivationFailed, step.name, err)
		}
	}

	return activeKeyFromExtended(key, network)
}

func activeKeyFromExtended(extKey *bip32.ExtendedKey, network *NetworkConfig) (*ActiveKey, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}

	pkh := bsvhash.Hash160(pubKey.Compressed())
	addr, err := EncodeCashAddr(network.CashAddrHRP, AddressP2PKH, pkh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &ActiveKey{
		PrivateKey: privKey,
		PublicKey:  pubKey,
		PubKeyHash: pkh,
		Address:    addr,
		Path:       DerivationPath,
	}, nil
}
