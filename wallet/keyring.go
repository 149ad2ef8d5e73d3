package wallet

import (
	"fmt"
	"sync"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/rs/zerolog"
)

// SeedVault produces the decrypted seed on demand. The key ring never
// persists the seed itself.
type SeedVault interface {
	Unlock(password string) ([]byte, error)
	Lock()
}

// SpentOutput describes the output an input spends, needed for the
// FORKID sighash.
type SpentOutput struct {
	Sats          uint64
	LockingScript []byte
}

// SignedTx is a fully signed transaction.
type SignedTx struct {
	Raw  []byte
	TxID string // display (big-endian) hex
}

// KeyRing holds the active key for one wallet session. Readers may call it
// concurrently; Unlock and Lock serialize against them.
type KeyRing struct {
	mu      sync.RWMutex
	network *NetworkConfig
	key     *ActiveKey
	log     zerolog.Logger
}

// NewKeyRing creates a locked key ring for network.
func NewKeyRing(network *NetworkConfig, logger zerolog.Logger) *KeyRing {
	if network == nil {
		network = &MainNet
	}
	return &KeyRing{network: network, log: logger}
}

// Network returns the key ring's network.
func (k *KeyRing) Network() *NetworkConfig {
	return k.network
}

// UnlockWithSeed derives the active key from seed. The caller still owns
// seed and should Zero it afterwards.
func (k *KeyRing) UnlockWithSeed(seed []byte) error {
	key, err := DeriveActiveKey(seed, k.network)
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.key = key
	k.mu.Unlock()
	k.log.Info().Str("address", key.Address).Msg("key ring unlocked")
	return nil
}

// Unlock fetches the seed from vault, derives the key and wipes the seed.
func (k *KeyRing) Unlock(vault SeedVault, password string) error {
	seed, err := vault.Unlock(password)
	if err != nil {
		return err
	}
	defer Zero(seed)
	return k.UnlockWithSeed(seed)
}

// Lock discards the active key.
func (k *KeyRing) Lock() {
	k.mu.Lock()
	wasUnlocked := k.key != nil
	k.key = nil
	k.mu.Unlock()
	if wasUnlocked {
		k.log.Info().Msg("key ring locked")
	}
}

// Unlocked reports whether a key is loaded.
func (k *KeyRing) Unlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key != nil
}

// Address returns the receive address of the active key.
func (k *KeyRing) Address() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return "", ErrSigningKeyUnavailable
	}
	return k.key.Address, nil
}

// PubKeyHash returns a copy of the active key's hash160.
func (k *KeyRing) PubKeyHash() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return nil, ErrSigningKeyUnavailable
	}
	return append([]byte(nil), k.key.PubKeyHash...), nil
}

// LockingScript returns the P2PKH locking script paying the active key.
func (k *KeyRing) LockingScript() ([]byte, error) {
	pkh, err := k.PubKeyHash()
	if err != nil {
		return nil, err
	}
	return P2PKHScript(pkh)
}

// SignInputs signs every input of the serialized unsigned transaction with
// the active key. spent[i] describes the output spent by input i.
func (k *KeyRing) SignInputs(unsignedTx []byte, spent []SpentOutput) (*SignedTx, error) {
	k.mu.RLock()
	key := k.key
	k.mu.RUnlock()
	if key == nil {
		return nil, ErrSigningKeyUnavailable
	}

	sdkTx, err := transaction.NewTransactionFromBytes(unsignedTx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse raw tx: %w", ErrSigningFailed, err)
	}
	if len(spent) != len(sdkTx.Inputs) {
		return nil, fmt.Errorf("%w: have %d spent outputs but tx has %d inputs",
			ErrSigningFailed, len(spent), len(sdkTx.Inputs))
	}

	for i, out := range spent {
		if len(out.LockingScript) == 0 {
			return nil, fmt.Errorf("%w: input %d has empty locking script", ErrSigningFailed, i)
		}

		// nil sighash flag selects SIGHASH_ALL|FORKID.
		unlocker, err := p2pkh.Unlock(key.PrivateKey, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create unlocker for input %d: %w",
				ErrSigningFailed, i, err)
		}

		sdkTx.Inputs[i].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      out.Sats,
			LockingScript: script.NewFromBytes(out.LockingScript),
		})
		sdkTx.Inputs[i].UnlockingScriptTemplate = unlocker
	}

	if err := sdkTx.Sign(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	return &SignedTx{
		Raw:  sdkTx.Bytes(),
		TxID: sdkTx.TxID().String(),
	}, nil
}

// P2PKHScript builds the locking script for a 20-byte public key hash.
func P2PKHScript(pubKeyHash []byte) ([]byte, error) {
	addr, err := script.NewAddressFromPublicKeyHash(pubKeyHash, true)
	if err != nil {
		return nil, fmt.Errorf("wallet: address from hash: %w", err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("wallet: P2PKH lock: %w", err)
	}
	return []byte(*lock), nil
}

// ScriptForAddress returns the locking script for a cashaddr on network.
func ScriptForAddress(addr string, network *NetworkConfig) ([]byte, error) {
	a, err := DecodeAddress(addr, network)
	if err != nil {
		return nil, err
	}
	if a.Type == AddressP2SH {
		// OP_HASH160 <20> OP_EQUAL
		s := make([]byte, 0, 23)
		s = append(s, script.OpHASH160, 0x14)
		s = append(s, a.Hash...)
		return append(s, script.OpEQUAL), nil
	}
	return P2PKHScript(a.Hash)
}

// AddressForScript renders a P2PKH or P2SH locking script as a cashaddr.
// ok is false for any other script form.
func AddressForScript(lockingScript []byte, network *NetworkConfig) (string, bool) {
	if network == nil {
		network = &MainNet
	}
	s := script.NewFromBytes(lockingScript)
	switch {
	case s.IsP2PKH():
		pkh, err := s.PublicKeyHash()
		if err != nil {
			return "", false
		}
		addr, err := EncodeCashAddr(network.CashAddrHRP, AddressP2PKH, pkh)
		return addr, err == nil
	case len(lockingScript) == 23 && lockingScript[0] == script.OpHASH160 &&
		lockingScript[1] == 0x14 && lockingScript[22] == script.OpEQUAL:
		addr, err := EncodeCashAddr(network.CashAddrHRP, AddressP2SH, lockingScript[2:22])
		return addr, err == nil
	}
	return "", false
}
