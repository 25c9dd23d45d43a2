// Package ratchet implements the Double Ratchet algorithm following Signal's
// design, using HMAC-SHA-256 symmetric-key ratchet chains and AES-256-GCM
// for message encryption.
package ratchet

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"

	"wisp/internal/crypto"
	"wisp/internal/domain/types"
)

// Policy caps bound how much work a single header can force and how much
// skipped-key state a conversation can accumulate. Both are enforced as a
// hard failure rather than a silent eviction: once exceeded, the
// conversation is no longer trustworthy to continue from its current state.
const (
	MaxSkippedKeys = 1000
	MaxSkipPerStep = 2000
)

// chainConstantNext and chainConstantMessage are the two single-byte inputs
// HMAC'd against a chain key to derive the next chain key and the message
// key respectively (KDF_CK).
var (
	chainConstantNext    = []byte{0x01}
	chainConstantMessage = []byte{0x02}
)

const rootKDFInfo = "rk"

// ErrTooManySkipped is returned when a header requests skipping more
// messages than policy allows, either in one step or cumulatively.
var ErrTooManySkipped = errors.New("ratchet: too many skipped message keys")

// ErrSkippedKeyNotFound names the case of a message index behind the
// receive chain with no cached key. Decrypt does not return it: such a
// message (for example a replay) fails AEAD authentication instead.
var ErrSkippedKeyNotFound = errors.New("ratchet: skipped message key not found")

var errChainUninitialised = errors.New("ratchet: chain key uninitialised")

// InitSender initialises ratchet state for the party that holds a freshly
// derived X3DH root key and already knows the peer's current ratchet
// public key (the responder's signed pre-key, for the very first message).
func InitSender(
	root []byte,
	peerRatchetPub types.X25519Public,
) (types.RatchetState, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return types.RatchetState{}, err
	}
	dh, err := crypto.DH(priv, peerRatchetPub)
	if err != nil {
		return types.RatchetState{}, err
	}
	newRoot, sendCK := kdfRootKey(root, dh[:])

	return types.RatchetState{
		RootKey:                 newRoot,
		DiffieHellmanPrivate:    priv,
		DiffieHellmanPublic:     pub,
		PeerDiffieHellmanPublic: peerRatchetPub,
		SendChainKey:            sendCK,
		SkippedKeys:             make(map[string][]byte),
	}, nil
}

// InitReceiver initialises ratchet state for the party that derived the
// X3DH root key as responder, using its own static (signed pre-key or
// identity) private half and the sender's first ratchet public key.
func InitReceiver(
	root []byte,
	ourRatchetPriv types.X25519Private,
	ourRatchetPub types.X25519Public,
	senderRatchetPub types.X25519Public,
) (types.RatchetState, error) {
	dh, err := crypto.DH(ourRatchetPriv, senderRatchetPub)
	if err != nil {
		return types.RatchetState{}, err
	}
	newRoot, recvCK := kdfRootKey(root, dh[:])

	return types.RatchetState{
		RootKey:                 newRoot,
		DiffieHellmanPrivate:    ourRatchetPriv,
		DiffieHellmanPublic:     ourRatchetPub,
		PeerDiffieHellmanPublic: senderRatchetPub,
		ReceiveChainKey:         recvCK,
		SkippedKeys:             make(map[string][]byte),
	}, nil
}

// Encrypt encrypts plaintext under the current send chain, performing a
// lazy DH ratchet step first when no send chain exists yet (SendChainKey is
// nil, as after InitReceiver; Decrypt's DH step sets up a send chain itself).
func Encrypt(st *types.RatchetState, ad, plaintext []byte) (types.RatchetHeader, []byte, error) {
	if st == nil {
		return types.RatchetHeader{}, nil, errors.New("ratchet: state uninitialised")
	}

	if st.SendChainKey == nil {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return types.RatchetHeader{}, nil, err
		}
		dh, err := crypto.DH(priv, st.PeerDiffieHellmanPublic)
		if err != nil {
			return types.RatchetHeader{}, nil, err
		}
		newRoot, sendCK := kdfRootKey(st.RootKey, dh[:])

		st.PreviousChainLength = st.SendMessageIndex
		st.SendMessageIndex = 0
		st.RootKey, st.DiffieHellmanPrivate, st.DiffieHellmanPublic, st.SendChainKey = newRoot, priv, pub, sendCK
	}

	mk, err := advanceChain(&st.SendChainKey)
	if err != nil {
		return types.RatchetHeader{}, nil, err
	}

	header := types.RatchetHeader{
		DiffieHellmanPublicKey: append([]byte(nil), st.DiffieHellmanPublic.Slice()...),
		PreviousChainLength:    st.PreviousChainLength,
		MessageIndex:           st.SendMessageIndex,
	}
	ct, err := seal(mk, header, ad, plaintext)
	if err != nil {
		return types.RatchetHeader{}, nil, err
	}
	st.SendMessageIndex++
	return header, ct, nil
}

// Decrypt decrypts ciphertext, transparently handling out-of-order delivery
// (skipped keys) and DH ratchet steps triggered by a new peer public key.
// On failure the state is left as it was before the call, except that a
// cached skipped key that was tried is discarded.
func Decrypt(st *types.RatchetState, ad []byte, header types.RatchetHeader, ciphertext []byte) (plaintext []byte, err error) {
	if st == nil {
		return nil, errors.New("ratchet: state uninitialised")
	}
	if len(header.DiffieHellmanPublicKey) != 32 {
		return nil, fmt.Errorf("ratchet: bad header DH key length %d", len(header.DiffieHellmanPublicKey))
	}

	if mk, ok := st.SkippedKeys[skippedKeyID(header.DiffieHellmanPublicKey, header.MessageIndex)]; ok {
		delete(st.SkippedKeys, skippedKeyID(header.DiffieHellmanPublicKey, header.MessageIndex))
		return open(mk, header, ad, ciphertext)
	}

	saved := *st
	saved.SkippedKeys = maps.Clone(st.SkippedKeys)
	defer func() {
		if err != nil {
			*st = saved
		}
	}()

	var headerPub types.X25519Public
	copy(headerPub[:], header.DiffieHellmanPublicKey)

	if !crypto.Equal(st.PeerDiffieHellmanPublic.Slice(), headerPub.Slice()) {
		if err := skipUntil(st, st.PeerDiffieHellmanPublic, header.PreviousChainLength); err != nil {
			return nil, err
		}

		dh, err := crypto.DH(st.DiffieHellmanPrivate, headerPub)
		if err != nil {
			return nil, err
		}
		newRoot, recvCK := kdfRootKey(st.RootKey, dh[:])

		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		dh2, err := crypto.DH(priv, headerPub)
		if err != nil {
			return nil, err
		}
		rootAfterSend, sendCK := kdfRootKey(newRoot, dh2[:])

		st.RootKey = rootAfterSend
		st.DiffieHellmanPrivate = priv
		st.DiffieHellmanPublic = pub
		st.PeerDiffieHellmanPublic = headerPub
		st.SendChainKey = sendCK
		st.ReceiveChainKey = recvCK
		st.PreviousChainLength = st.SendMessageIndex
		st.SendMessageIndex = 0
		st.ReceiveMessageIndex = 0
	}

	if err := skipUntil(st, headerPub, header.MessageIndex); err != nil {
		return nil, err
	}

	mk, err := advanceChain(&st.ReceiveChainKey)
	if err != nil {
		return nil, err
	}
	pt, err := open(mk, header, ad, ciphertext)
	if err != nil {
		return nil, err
	}
	st.ReceiveMessageIndex++
	return pt, nil
}

// kdfRootKey derives a new root key and chain key from the DH output,
// mixing in the current root key as HKDF salt (KDF_RK).
func kdfRootKey(root, dh []byte) (newRoot, chainKey []byte) {
	okm, err := crypto.HKDFSHA256(dh, root, []byte(rootKDFInfo), 64)
	if err != nil {
		// HKDF over SHA-256 with these bounded, non-empty inputs cannot fail.
		panic(fmt.Sprintf("ratchet: kdf_rk: %v", err))
	}
	return okm[:32], okm[32:]
}

// advanceChain implements KDF_CK: two HMAC-SHA-256 evaluations of the chain
// key under distinct constants produce the next chain key and the message
// key, and the chain key is advanced in place.
func advanceChain(chainKey *[]byte) ([]byte, error) {
	if *chainKey == nil {
		return nil, errChainUninitialised
	}
	mk := hmacSum(*chainKey, chainConstantMessage)
	next := hmacSum(*chainKey, chainConstantNext)
	*chainKey = next
	return mk, nil
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// seal encrypts plaintext with AES-256-GCM. The nonce is drawn from the
// CSPRNG and transmitted alongside the ciphertext; the header is bound in
// as additional authenticated data together with the caller-supplied ad.
func seal(mk []byte, header types.RatchetHeader, ad, plaintext []byte) ([]byte, error) {
	nonce, err := crypto.RandomBytes(crypto.AESGCMNonceSize)
	if err != nil {
		return nil, err
	}
	ct, err := crypto.AESGCMSeal(mk, nonce, headerAD(header, ad), plaintext)
	if err != nil {
		return nil, err
	}
	return append(nonce, ct...), nil
}

// open decrypts a blob produced by seal.
func open(mk []byte, header types.RatchetHeader, ad, blob []byte) ([]byte, error) {
	if len(blob) < crypto.AESGCMNonceSize {
		return nil, errors.New("ratchet: ciphertext shorter than nonce")
	}
	nonce, ct := blob[:crypto.AESGCMNonceSize], blob[crypto.AESGCMNonceSize:]
	return crypto.AESGCMOpen(mk, nonce, headerAD(header, ad), ct)
}

// headerAD binds any caller-supplied associated data followed by the
// ratchet header (DH public, PN, N) into the AEAD's additional data.
func headerAD(h types.RatchetHeader, ad []byte) []byte {
	out := make([]byte, 0, len(ad)+len(h.DiffieHellmanPublicKey)+8)
	out = append(out, ad...)
	out = append(out, h.DiffieHellmanPublicKey...)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], h.PreviousChainLength)
	out = append(out, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], h.MessageIndex)
	return append(out, tmp[:]...)
}

// skipUntil derives and caches message keys for indices [Nr, until) on the
// receive chain keyed by peerPub, failing hard rather than evicting state
// if either the per-step or cumulative policy cap would be exceeded.
func skipUntil(st *types.RatchetState, peerPub types.X25519Public, until uint32) error {
	if st.ReceiveChainKey == nil {
		// No receive chain yet (e.g. ratchet step just occurred and this is
		// the first message on it); nothing to skip.
		st.ReceiveMessageIndex = 0
		return nil
	}
	if until < st.ReceiveMessageIndex {
		return nil
	}
	if until-st.ReceiveMessageIndex > MaxSkipPerStep {
		return ErrTooManySkipped
	}
	if len(st.SkippedKeys)+int(until-st.ReceiveMessageIndex) > MaxSkippedKeys {
		return ErrTooManySkipped
	}
	for st.ReceiveMessageIndex < until {
		mk, err := advanceChain(&st.ReceiveChainKey)
		if err != nil {
			return err
		}
		st.SkippedKeys[skippedKeyID(peerPub.Slice(), st.ReceiveMessageIndex)] = mk
		st.ReceiveMessageIndex++
	}
	return nil
}

// skippedKeyID derives a map key from a peer ratchet public key and message index.
func skippedKeyID(peerPub []byte, n uint32) string {
	buf := make([]byte, len(peerPub)+4)
	copy(buf, peerPub)
	binary.BigEndian.PutUint32(buf[len(peerPub):], n)
	return string(buf)
}
