package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"wisp/internal/protocol/envelope"
)

// keystoreFormatVersion is the current supported version of the encrypted
// blob format stored on disk.
const keystoreFormatVersion = 1

// errWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified or corrupted.
var errWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// blob is the on-disk JSON structure holding the sealed envelope and the
// scrypt parameters used to derive its key from a passphrase.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Sealed string `json:"sealed"`
}

// encrypt derives a key from passphrase via scrypt and seals raw with the
// AES-256-GCM envelope used everywhere else in the module (see
// internal/protocol/envelope), binding the salt in as associated data.
func encrypt(passphrase string, raw []byte, N, r, p int) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, 32)
	if err != nil {
		return nil, err
	}
	sealed, err := envelope.Seal(key, salt[:], raw)
	if err != nil {
		return nil, err
	}

	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Sealed: sealed,
	})
}

// decrypt opens the JSON blob using a key derived from passphrase.
func decrypt(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, 32)
	if err != nil {
		return nil, err
	}
	pt, err := envelope.Open(key, bl.Sealed, bl.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

// scryptParamsDefault returns the tunables used for new blobs.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
