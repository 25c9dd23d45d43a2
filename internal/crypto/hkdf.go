package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 derives outLen bytes from ikm via HKDF-SHA-256 (RFC 5869) with
// the given salt and info. salt may be nil, in which case HKDF uses a
// zero-filled salt of hash length per the RFC.
func HKDFSHA256(ikm, salt, info []byte, outLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
