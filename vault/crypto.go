package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// File layout: magic(4) || version(1) || kdf params(9) || salt(16) ||
// nonce(12) || AES-256-GCM(key, nonce, plaintext||checksum, aad=header).
const (
	fileMagic   = "ETKV"
	fileVersion = 1

	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4
	KeyLen      = 32

	headerLen = len(fileMagic) + 1 + 9
)

// KDFParams are the Argon2id cost parameters. They are stored in the file
// header so a vault stays readable if the defaults change.
type KDFParams struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
}

// DefaultKDFParams is used for new vaults.
var DefaultKDFParams = KDFParams{
	Time:        3,
	MemoryKiB:   64 * 1024, // 64 MB
	Parallelism: 4,
}

func (p KDFParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, KeyLen)
}

func (p KDFParams) header() []byte {
	h := make([]byte, 0, headerLen)
	h = append(h, fileMagic...)
	h = append(h, fileVersion)
	h = appendUint32(h, p.Time)
	h = appendUint32(h, p.MemoryKiB)
	h = append(h, p.Parallelism)
	return h
}

func parseHeader(b []byte) (KDFParams, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], []byte(fileMagic)) {
		return KDFParams{}, ErrUnsupportedFormat
	}
	if b[4] != fileVersion {
		return KDFParams{}, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, b[4])
	}
	p := KDFParams{
		Time:        readUint32(b[5:9]),
		MemoryKiB:   readUint32(b[9:13]),
		Parallelism: b[13],
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
		return KDFParams{}, fmt.Errorf("%w: zero KDF parameter", ErrUnsupportedFormat)
	}
	return p, nil
}

// Encrypt seals secret under password with Argon2id and AES-256-GCM.
// A SHA256(secret)[:4] checksum is sealed alongside it.
func Encrypt(secret []byte, password string, params KDFParams) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: generate salt: %w", err)
	}
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	gcm, err := newGCM(params.key(password, salt))
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(secret)
	plaintext := make([]byte, 0, len(secret)+ChecksumLen)
	plaintext = append(plaintext, secret...)
	plaintext = append(plaintext, sum[:ChecksumLen]...)
	defer zero(plaintext)

	header := params.header()
	out := make([]byte, 0, headerLen+SaltLen+NonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, header), nil
}

// Decrypt reverses Encrypt. A wrong password yields ErrDecryptionFailed.
func Decrypt(data []byte, password string) ([]byte, error) {
	params, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen+SaltLen+NonceLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	header := data[:headerLen]
	salt := data[headerLen : headerLen+SaltLen]
	nonce := data[headerLen+SaltLen : headerLen+SaltLen+NonceLen]
	ciphertext := data[headerLen+SaltLen+NonceLen:]

	gcm, err := newGCM(params.key(password, salt))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, header)
	if err != nil || len(plaintext) < ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	secret := plaintext[:len(plaintext)-ChecksumLen]
	sum := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(sum[:ChecksumLen], plaintext[len(secret):]) != 1 {
		zero(plaintext)
		return nil, ErrChecksumMismatch
	}
	return secret, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	defer zero(key)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: GCM creation failed: %w", err)
	}
	return gcm, nil
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
