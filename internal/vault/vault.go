// Package vault provides symmetric authenticated encryption for secrets at
// rest. A single process-wide key is loaded at startup; plaintext exists only
// transiently in memory and is never logged or persisted.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ternarybob/venator/internal/models"
)

// Vault encrypts and decrypts with XChaCha20-Poly1305. The random nonce is
// prepended to the ciphertext, so Encrypt is safe to call repeatedly with
// the same key and Decrypt(Encrypt(x)) == x for every valid ciphertext.
type Vault struct {
	key []byte
}

// New creates a vault from a raw 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", models.ErrCrypto, chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Vault{key: k}, nil
}

// NewFromBase64 creates a vault from a base64-encoded key, the form the key
// takes in configuration and environment variables.
func NewFromBase64(encoded string) (*Vault, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: encryption key is not configured", models.ErrCrypto)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		key, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid base64: %v", models.ErrCrypto, err)
	}
	return New(key)
}

// GenerateKey returns a fresh random key in the base64 form NewFromBase64
// accepts.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt seals plaintext under the process key.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Malformed or tampered
// input fails with models.ErrCrypto.
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", models.ErrCrypto)
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return plaintext, nil
}

// EncryptString is Encrypt for string plaintext.
func (v *Vault) EncryptString(plaintext string) ([]byte, error) {
	return v.Encrypt([]byte(plaintext))
}

// DecryptString is Decrypt returning a string.
func (v *Vault) DecryptString(ciphertext []byte) (string, error) {
	plaintext, err := v.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
