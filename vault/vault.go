// Package vault stores the wallet recovery phrase on disk, encrypted under
// a user password. It satisfies wallet.SeedVault: the key ring asks for the
// seed on unlock and wipes it once the signing key is derived.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitfsorg/libetoken-go/wallet"
)

// File names inside the data directory.
const (
	WalletFile = "wallet.enc"
	MetaFile   = "vault.json"
	LockFile   = "vault.lock"
)

// Compile-time interface check.
var _ wallet.SeedVault = (*Vault)(nil)

// Meta is the unencrypted description of the wallet. It lets read-only
// commands show the address without asking for the password.
type Meta struct {
	Network   string    `json:"network"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// Vault is a password-protected recovery phrase in a data directory.
type Vault struct {
	dir    string
	params KDFParams
	log    zerolog.Logger

	mu       sync.Mutex
	unlocked bool
}

// Option configures a Vault.
type Option func(*Vault)

// WithKDFParams overrides the Argon2id cost for newly written files.
func WithKDFParams(p KDFParams) Option {
	return func(v *Vault) { v.params = p }
}

// WithLogger sets the vault logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Vault) { v.log = l }
}

// Open returns the vault rooted at dir. The files need not exist yet.
func Open(dir string, opts ...Option) *Vault {
	v := &Vault{dir: dir, params: DefaultKDFParams, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Dir returns the data directory.
func (v *Vault) Dir() string { return v.dir }

// Exists reports whether an encrypted wallet file is present.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path(WalletFile))
	return err == nil
}

// Create encrypts mnemonic under password and writes it together with meta.
// It refuses to overwrite an existing wallet.
func (v *Vault) Create(mnemonic, password string, meta Meta) error {
	if !wallet.ValidateMnemonic(mnemonic) {
		return wallet.ErrInvalidMnemonic
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return fmt.Errorf("vault: create data dir: %w", err)
	}

	return v.withLock(func() error {
		if v.Exists() {
			return ErrVaultExists
		}
		enc, err := Encrypt([]byte(mnemonic), password, v.params)
		if err != nil {
			return err
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = time.Now().UTC()
		}
		if err := v.writeMeta(meta); err != nil {
			return err
		}
		if err := writeFileAtomic(v.path(WalletFile), enc); err != nil {
			return fmt.Errorf("vault: write wallet: %w", err)
		}
		v.log.Info().Str("dir", v.dir).Str("address", meta.Address).Msg("wallet created")
		return nil
	})
}

// Mnemonic decrypts and returns the recovery phrase.
func (v *Vault) Mnemonic(password string) (string, error) {
	phrase, err := v.decrypt(password)
	if err != nil {
		return "", err
	}
	defer zero(phrase)
	return string(phrase), nil
}

// Unlock implements wallet.SeedVault. The returned seed belongs to the
// caller, who should wipe it after use.
func (v *Vault) Unlock(password string) ([]byte, error) {
	phrase, err := v.decrypt(password)
	if err != nil {
		v.log.Warn().Err(err).Msg("vault unlock failed")
		return nil, err
	}
	defer zero(phrase)

	seed, err := wallet.SeedFromMnemonic(string(phrase), "")
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.unlocked = true
	v.mu.Unlock()
	return seed, nil
}

// Lock implements wallet.SeedVault. The vault keeps no plaintext, so this
// only records the state change.
func (v *Vault) Lock() {
	v.mu.Lock()
	v.unlocked = false
	v.mu.Unlock()
}

// Unlocked reports whether Unlock succeeded since the last Lock.
func (v *Vault) Unlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlocked
}

// ChangePassword re-encrypts the phrase under a new password with a fresh
// salt and the vault's current KDF parameters.
func (v *Vault) ChangePassword(oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}
	return v.withLock(func() error {
		phrase, err := v.decrypt(oldPassword)
		if err != nil {
			return err
		}
		defer zero(phrase)

		enc, err := Encrypt(phrase, newPassword, v.params)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(v.path(WalletFile), enc); err != nil {
			return fmt.Errorf("vault: write wallet: %w", err)
		}
		v.log.Info().Msg("wallet password changed")
		return nil
	})
}

// Meta reads the unencrypted wallet description.
func (v *Vault) Meta() (*Meta, error) {
	data, err := os.ReadFile(v.path(MetaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read metadata: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	return &m, nil
}

func (v *Vault) decrypt(password string) ([]byte, error) {
	data, err := os.ReadFile(v.path(WalletFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read wallet: %w", err)
	}
	return Decrypt(data, password)
}

func (v *Vault) writeMeta(m Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal metadata: %w", err)
	}
	if err := writeFileAtomic(v.path(MetaFile), data); err != nil {
		return fmt.Errorf("vault: write metadata: %w", err)
	}
	return nil
}

// withLock runs fn while holding the cross-process vault lock.
func (v *Vault) withLock(fn func() error) error {
	fl, err := tryLock(v.path(LockFile))
	if err != nil {
		return err
	}
	defer releaseLock(fl)
	return fn()
}

func (v *Vault) path(name string) string {
	return filepath.Join(v.dir, name)
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
