package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESGCMNonceSize is the standard 96-bit GCM nonce size.
const AESGCMNonceSize = 12

// AESGCMSeal encrypts plaintext under key (32 bytes, AES-256) with the given
// nonce and associated data, returning ciphertext-with-tag.
func AESGCMSeal(key, nonce, ad, plaintext []byte) ([]byte, error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("aes-gcm: bad nonce size %d", len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// AESGCMOpen decrypts ciphertext-with-tag under key, nonce, and ad.
func AESGCMOpen(key, nonce, ad, ciphertext []byte) ([]byte, error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("aes-gcm: bad nonce size %d", len(nonce))
	}
	return aead.Open(nil, nonce, ciphertext, ad)
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm: new gcm: %w", err)
	}
	return aead, nil
}
