// Package secret seals session strings before they reach the database.
// Keys are 32 bytes supplied as 64 hex chars; ciphertexts are base64 with
// the nonce prepended.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrBadKey        = errors.New("encryption key must be 64 hex chars (32 bytes)")
	ErrBadCiphertext = errors.New("ciphertext is malformed or was sealed with a different key")
)

type Box struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
	nonceSize int
}

// NewBox derives an AEAD from a hex key.
func NewBox(hexKey string) (*Box, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrBadKey
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	return &Box{aead: aead, nonceSize: aead.NonceSize()}, nil
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext).
func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (b *Box) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < b.nonceSize {
		return "", ErrBadCiphertext
	}

	plaintext, err := b.aead.Open(nil, raw[:b.nonceSize], raw[b.nonceSize:], nil)
	if err != nil {
		return "", ErrBadCiphertext
	}
	return string(plaintext), nil
}

// Redact returns a short, log-safe preview of a secret.
func Redact(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
