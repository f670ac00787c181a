package export

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SealMagic prefixes sealed exports.
const SealMagic = "BINGOENC1"

const (
	saltLength = 16
	keyLength  = 32
)

var (
	ErrNoPassphrase = errors.New("passphrase required")
	ErrNotSealed    = errors.New("data is not a sealed export")
	ErrOpenFailed   = errors.New("wrong passphrase or corrupted data")
)

// SealConfig holds the Argon2id key derivation parameters.
type SealConfig struct {
	Passphrase string
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
}

// DefaultSealConfig returns the RFC 9106 second recommended option.
func DefaultSealConfig(passphrase string) SealConfig {
	return SealConfig{
		Passphrase: passphrase,
		Time:       3,
		MemoryKiB:  64 * 1024,
		Threads:    4,
	}
}

func (c SealConfig) key(salt []byte) []byte {
	return argon2.IDKey([]byte(c.Passphrase), salt, c.Time, c.MemoryKiB, c.Threads, keyLength)
}

func (c SealConfig) aead(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from the
// passphrase. Layout: magic || salt || nonce || ciphertext+tag. The magic
// header is authenticated as additional data.
func Seal(plaintext []byte, cfg SealConfig) ([]byte, error) {
	if cfg.Passphrase == "" {
		return nil, ErrNoPassphrase
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := cfg.aead(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(SealMagic)+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, SealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, []byte(SealMagic)), nil
}

// Open reverses Seal. cfg must carry the parameters used to seal.
func Open(sealed []byte, cfg SealConfig) ([]byte, error) {
	if cfg.Passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	rest := sealed[len(SealMagic):]
	if len(rest) < saltLength {
		return nil, ErrOpenFailed
	}
	salt, rest := rest[:saltLength], rest[saltLength:]

	gcm, err := cfg.aead(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrOpenFailed
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(SealMagic))
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data starts with the seal header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(SealMagic))
}
