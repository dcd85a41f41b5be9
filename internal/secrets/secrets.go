// Package secrets seals and unseals small credential blobs at rest.
// Integration credentials (OAuth tokens) are stored as opaque sealed bytes;
// only the running process holding the sealing key can recover them.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrInvalidKey is returned when the sealing key is not 32 bytes of hex.
	ErrInvalidKey = errors.New("secrets: sealing key must be 64 hex characters")
	// ErrDecryptFailed is returned when a blob cannot be opened, either
	// because it was sealed under a different key or has been tampered with.
	ErrDecryptFailed = errors.New("secrets: decryption failed")
)

// Sealer encrypts and decrypts credential blobs with a fixed symmetric key.
type Sealer struct {
	key [keySize]byte
}

// NewSealer parses a hex-encoded 32-byte key.
func NewSealer(hexKey string) (*Sealer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	sealer := &Sealer{}
	copy(sealer.key[:], raw)
	return sealer, nil
}

// Seal encrypts plaintext with a fresh random nonce. The nonce is prepended
// to the returned blob.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a blob produced by Seal.
func (s *Sealer) Open(blob []byte) ([]byte, error) {
	if len(blob) < nonceSize {
		return nil, ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	plaintext, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
