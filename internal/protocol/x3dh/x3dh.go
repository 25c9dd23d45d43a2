// Package x3dh implements the X3DH key-agreement used to bootstrap a Double
// Ratchet session between two parties.
package x3dh

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"wisp/internal/crypto"
	"wisp/internal/domain/types"
	"wisp/internal/util/memzero"
)

// domainSeparator (32 bytes of 0xFF) is prepended to every DH transcript,
// ahead of DH1..DH3 and, when a one-time pre-key is used, DH4.
var domainSeparator = bytesRepeat(0xff, 32)

const (
	rootInfo = "wisp-x3dh-root"
	okmLen   = 64 // split into a 32-byte root key and a 32-byte transcript-binding key
)

// ErrBadSignedPreKeySignature is returned when a bundle's signed pre-key
// signature does not verify under its signing key.
var ErrBadSignedPreKeySignature = errors.New("x3dh: signed pre-key signature invalid")

// InitiatorRoot runs X3DH as the initiator against a peer's pre-key bundle.
// It verifies the bundle's signed pre-key signature, generates a fresh
// ephemeral key pair, derives the shared root key, and returns everything
// the caller needs to build the first message's PreKeyMessage.
func InitiatorRoot(
	ours types.Identity,
	bundle types.PreKeyBundle,
) (
	rootKey []byte,
	ephemeralPub types.X25519Public,
	pm types.PreKeyMessage,
	err error,
) {
	if !crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPreKey.Slice(), bundle.SignedPreKeySignature) {
		return nil, ephemeralPub, pm, ErrBadSignedPreKeySignature
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, ephemeralPub, pm, fmt.Errorf("x3dh: generate ephemeral key: %w", err)
	}

	dh1, err := crypto.DH(ours.XPriv, bundle.SignedPreKey) // DH(IKa, SPKb)
	if err != nil {
		return nil, ephemeralPub, pm, err
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey) // DH(EKa, IKb)
	if err != nil {
		return nil, ephemeralPub, pm, err
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPreKey) // DH(EKa, SPKb)
	if err != nil {
		return nil, ephemeralPub, pm, err
	}

	var otpkID types.OneTimePreKeyID
	transcript := make([]byte, 0, 32*5)
	transcript = append(transcript, domainSeparator...)
	transcript = append(transcript, dh1[:]...)
	transcript = append(transcript, dh2[:]...)
	transcript = append(transcript, dh3[:]...)
	if bundle.OneTimePreKey != nil {
		dh4, dhErr := crypto.DH(ephPriv, bundle.OneTimePreKey.Pub) // DH(EKa, OPKb)
		if dhErr != nil {
			return nil, ephemeralPub, pm, dhErr
		}
		transcript = append(transcript, dh4[:]...)
		memzero.Zero(dh4[:])
		otpkID = bundle.OneTimePreKey.ID
	}
	memzero.Zero(dh1[:])
	memzero.Zero(dh2[:])
	memzero.Zero(dh3[:])

	okm, err := crypto.HKDFSHA256(transcript, make([]byte, sha256.Size), []byte(rootInfo), okmLen)
	memzero.Zero(transcript)
	if err != nil {
		return nil, ephemeralPub, pm, err
	}
	rootKey = okm[:32]
	transcriptKey := okm[32:]

	pm = types.PreKeyMessage{
		InitiatorIdentityKey: ours.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
		OneTimePreKeyID:      otpkID,
		TranscriptSHA256:     bindTranscript(transcriptKey, ours.XPub, ephPub, bundle.IdentityKey),
	}
	memzero.Zero(transcriptKey)
	return rootKey, ephPub, pm, nil
}

// ResponderRoot runs X3DH as the responder, recomputing the same root key
// from a PreKeyMessage and the responder's own signed (and, if referenced,
// one-time) pre-key private halves.
func ResponderRoot(
	ours types.Identity,
	signedPreKeyPriv types.X25519Private,
	oneTimePreKeyPriv *types.X25519Private,
	pm types.PreKeyMessage,
) ([]byte, error) {
	dh1, err := crypto.DH(signedPreKeyPriv, pm.InitiatorIdentityKey) // DH(SPKb, IKa)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(ours.XPriv, pm.EphemeralKey) // DH(IKb, EKa)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(signedPreKeyPriv, pm.EphemeralKey) // DH(SPKb, EKa)
	if err != nil {
		return nil, err
	}

	transcript := make([]byte, 0, 32*5)
	transcript = append(transcript, domainSeparator...)
	transcript = append(transcript, dh1[:]...)
	transcript = append(transcript, dh2[:]...)
	transcript = append(transcript, dh3[:]...)
	if oneTimePreKeyPriv != nil && pm.OneTimePreKeyID != "" {
		dh4, dhErr := crypto.DH(*oneTimePreKeyPriv, pm.EphemeralKey) // DH(OPKb, EKa)
		if dhErr != nil {
			return nil, dhErr
		}
		transcript = append(transcript, dh4[:]...)
		memzero.Zero(dh4[:])
	}
	memzero.Zero(dh1[:])
	memzero.Zero(dh2[:])
	memzero.Zero(dh3[:])

	okm, err := crypto.HKDFSHA256(transcript, make([]byte, sha256.Size), []byte(rootInfo), okmLen)
	memzero.Zero(transcript)
	if err != nil {
		return nil, err
	}
	rootKey := okm[:32]
	transcriptKey := okm[32:]

	want := bindTranscript(transcriptKey, pm.InitiatorIdentityKey, pm.EphemeralKey, ours.XPub)
	memzero.Zero(transcriptKey)
	if !crypto.Equal(want, pm.TranscriptSHA256) {
		memzero.Zero(rootKey)
		return nil, errors.New("x3dh: transcript binding mismatch")
	}
	return rootKey, nil
}

// bindTranscript authenticates the handshake transcript under the key
// carved out of the X3DH output, binding the message to the exact
// initiator/responder/ephemeral keys involved.
func bindTranscript(key []byte, initiatorIK, ephemeral, responderIK types.X25519Public) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(initiatorIK[:])
	h.Write(ephemeral[:])
	h.Write(responderIK[:])
	return h.Sum(nil)
}

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
