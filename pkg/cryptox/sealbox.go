package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// SealBox provides authenticated encryption (AES-256-GCM) of small string
// payloads under a caller-supplied key. The client SDK uses it to keep the
// cached token pair encrypted at rest; any key material of any length is
// accepted and stretched to 32 bytes with SHA-256.
type SealBox struct {
	key []byte
}

// ErrSealBoxOpen reports ciphertext that failed authentication or was
// produced under a different key.
var ErrSealBoxOpen = errors.New("cryptox: sealbox open failed")

// NewSealBox derives a box from arbitrary key material.
func NewSealBox(keyMaterial []byte) *SealBox {
	sum := sha256.Sum256(keyMaterial)
	return &SealBox{key: sum[:]}
}

// Seal encrypts plaintext and returns base64url text safe to drop into any
// string-valued store. Output layout: nonce || ciphertext || tag.
func (b *SealBox) Seal(plaintext string) (string, error) {
	gcm, err := b.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a string produced by Seal.
func (b *SealBox) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealBoxOpen
	}

	gcm, err := b.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrSealBoxOpen
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealBoxOpen
	}

	return string(plaintext), nil
}

func (b *SealBox) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
