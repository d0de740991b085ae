// Package cryptox implements the credential vault: authenticated encryption
// of portal and provider secrets at rest.
//
// Ciphertext is stored as a single string "iv:authTag:ciphertext", each
// segment standard base64. A value without that shape is treated as legacy
// plaintext and passes through Decrypt unchanged.
package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"golang.org/x/crypto/argon2"
)

const (
	KeySize   = 32
	nonceSize = 12
	tagSize   = 16
	delimiter = ":"
)

// DeriveKey stretches a configured passphrase into a 32-byte AES-256 key
// with argon2id.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Vault encrypts and decrypts secrets with AES-256-GCM.
type Vault struct {
	aead   cipher.AEAD
	logger logging.Logger
}

// NewVault returns a Vault for a 32-byte key.
func NewVault(key []byte, logger logging.Logger) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d: %w", KeySize, len(key), common.ErrConfiguration)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Vault{aead: aead, logger: logger.With("module", "vault")}, nil
}

// Encrypt seals plaintext under a fresh random nonce. Two calls with the same
// input return different strings.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return enc.EncodeToString(nonce) + delimiter + enc.EncodeToString(tag) + delimiter + enc.EncodeToString(ciphertext), nil
}

// IsEncrypted reports whether value has the three-segment ciphertext shape.
func IsEncrypted(value string) bool {
	return strings.Count(value, delimiter) == 2
}

// Decrypt returns the plaintext for value and never fails: legacy plaintext,
// malformed input and undecryptable ciphertext are all returned unchanged.
// Cryptographic failures are logged. Use DecryptStrict where a corrupt
// secret must not be mistaken for a valid one.
func (v *Vault) Decrypt(value string) string {
	if !strings.Contains(value, delimiter) {
		return value
	}
	parts := strings.Split(value, delimiter)
	if len(parts) != 3 {
		return value
	}
	plaintext, err := v.open(parts)
	if err != nil {
		v.logger.Warn(context.Background(), "decryption failed, returning stored value", "error", err)
		return value
	}
	return plaintext
}

// DecryptStrict separates legacy plaintext (no delimiter, returned as is)
// from corrupt ciphertext, which yields ErrDecryption.
func (v *Vault) DecryptStrict(value string) (string, error) {
	if !strings.Contains(value, delimiter) {
		return value, nil
	}
	parts := strings.Split(value, delimiter)
	if len(parts) != 3 {
		return "", fmt.Errorf("expected 3 segments, got %d: %w", len(parts), common.ErrDecryption)
	}
	plaintext, err := v.open(parts)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, common.ErrDecryption)
	}
	return plaintext, nil
}

func (v *Vault) open(parts []string) (string, error) {
	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("iv: %w", err)
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("auth tag: %w", err)
	}
	ciphertext, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("ciphertext: %w", err)
	}
	if len(nonce) != nonceSize || len(tag) != tagSize {
		return "", fmt.Errorf("bad iv or tag length")
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
