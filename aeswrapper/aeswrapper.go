package aeswrapper

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

var (
	ErrInvalidKeyLength   = errors.New("invalid key length, must be 16, 24 or 32 bytes")
	ErrCipherFailure      = errors.New("cipher creation failure")
	ErrRandomNonceFailure = errors.New("random nonce creation failure")
	ErrSealedTooShort     = errors.New("sealed data shorter than nonce")
	ErrOpenFailure        = errors.New("open failure, wrong key or corrupted data")
)

const nonceSize = 12

// Helper seals data with AES in Galois Counter Mode.
// The random nonce is prepended to the sealed data.
type Helper struct{}

// New creates a new Helper.
func New() Helper {
	return Helper{}
}

// Seal encrypts and authenticates the plaintext with the key.
func (h Helper) Seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrRandomNonceFailure, err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts data sealed with the key.
func (h Helper) Open(key, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrSealedTooShort
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, errors.Join(ErrOpenFailure, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrCipherFailure, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrCipherFailure, err)
	}
	return gcm, nil
}
