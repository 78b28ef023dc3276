// Package fieldcrypt encrypts sensitive alert fields at rest with AES-GCM.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrBadKeySize    = errors.New("key must be 16, 24 or 32 bytes")
	ErrMalformedBlob = errors.New("malformed ciphertext blob")
)

// Cipher seals and opens field values. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a raw AES key.
func New(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrBadKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts a field value. The random nonce is prepended to the
// ciphertext and the whole blob is base64 encoded for storage.
func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	blob := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a blob produced by Seal.
func (c *Cipher) Open(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedBlob
	}
	ns := c.aead.NonceSize()
	if len(blob) < ns {
		return "", ErrMalformedBlob
	}
	plaintext, err := c.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}
	return string(plaintext), nil
}
