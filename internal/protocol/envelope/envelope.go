package envelope

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"wisp/internal/crypto"
)

const maxAssociatedData = 1<<16 - 1

// ErrMalformed is returned when a sealed blob is too short or its
// associated-data length field does not match the remaining bytes.
var ErrMalformed = errors.New("envelope: malformed sealed blob")

// ErrAssociatedDataMismatch is returned when a sealed blob's embedded
// associated data does not equal the caller's expected value: the blob is
// authentic but was not sealed for the context the caller is opening it in.
var ErrAssociatedDataMismatch = errors.New("envelope: associated data does not match expected value")

// Seal encrypts plaintext under key (32 bytes, AES-256-GCM) with ad bound in
// as additional authenticated data, and returns the framed, base64-encoded
// result.
func Seal(key, ad, plaintext []byte) (string, error) {
	if len(ad) > maxAssociatedData {
		return "", fmt.Errorf("envelope: associated data too large (%d bytes)", len(ad))
	}
	nonce, err := crypto.RandomBytes(crypto.AESGCMNonceSize)
	if err != nil {
		return "", err
	}
	ct, err := crypto.AESGCMSeal(key, nonce, ad, plaintext)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, len(nonce)+2+len(ad)+len(ct))
	out = append(out, nonce...)
	var adLen [2]byte
	binary.BigEndian.PutUint16(adLen[:], uint16(len(ad)))
	out = append(out, adLen[:]...)
	out = append(out, ad...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal, rejecting the blob unless its embedded associated
// data equals expectedAD (checked in constant time) before returning the
// plaintext. Pass nil for expectedAD where Seal was called with nil ad.
func Open(key []byte, encoded string, expectedAD []byte) (plaintext []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("envelope: base64 decode: %w", err)
	}
	if len(raw) < crypto.AESGCMNonceSize+2 {
		return nil, ErrMalformed
	}
	nonce := raw[:crypto.AESGCMNonceSize]
	rest := raw[crypto.AESGCMNonceSize:]
	adLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if adLen > len(rest) {
		return nil, ErrMalformed
	}
	ad := rest[:adLen]
	ct := rest[adLen:]

	if len(ad) != len(expectedAD) || subtle.ConstantTimeCompare(ad, expectedAD) != 1 {
		return nil, ErrAssociatedDataMismatch
	}

	pt, err := crypto.AESGCMOpen(key, nonce, ad, ct)
	if err != nil {
		return nil, fmt.Errorf("envelope: open: %w", err)
	}
	return pt, nil
}
