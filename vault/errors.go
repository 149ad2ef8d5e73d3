package vault

import "errors"

var (
	// ErrVaultNotFound indicates the data directory holds no wallet.
	ErrVaultNotFound = errors.New("vault: wallet not found")

	// ErrVaultExists indicates Create was called on an initialized data directory.
	ErrVaultExists = errors.New("vault: wallet already exists")

	// ErrVaultBusy indicates another process holds the vault lock.
	ErrVaultBusy = errors.New("vault: locked by another process")

	// ErrEmptyPassword indicates an empty encryption password.
	ErrEmptyPassword = errors.New("vault: password is required")

	// ErrDecryptionFailed indicates a wrong password or corrupted file.
	ErrDecryptionFailed = errors.New("vault: decryption failed (wrong password?)")

	// ErrChecksumMismatch indicates the decrypted phrase failed its checksum.
	ErrChecksumMismatch = errors.New("vault: checksum mismatch")

	// ErrUnsupportedFormat indicates an unknown file magic or version.
	ErrUnsupportedFormat = errors.New("vault: unsupported wallet file format")

	// ErrInvalidMetadata indicates vault.json could not be parsed.
	ErrInvalidMetadata = errors.New("vault: invalid metadata")
)
