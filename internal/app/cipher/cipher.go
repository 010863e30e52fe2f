// Package cipher provides the field-level encryption used for confidential
// app attributes before they reach durable storage.
package cipher

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher encrypts and decrypts opaque byte blobs.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Noop passes data through unchanged. It is the default when no key is
// configured, for local development only.
type Noop struct{}

func (Noop) Encrypt(p []byte) ([]byte, error) { return p, nil }
func (Noop) Decrypt(c []byte) ([]byte, error) { return c, nil }

type chachaCipher struct {
	key []byte
}

// New returns an XChaCha20-Poly1305 cipher. The key must be exactly 32 bytes.
func New(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &chachaCipher{key: append([]byte(nil), key...)}, nil
}

func (c *chachaCipher) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *chachaCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, sealed, nil)
}
