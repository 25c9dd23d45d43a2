package ratchet_test

import (
	"bytes"
	"errors"
	"testing"

	"wisp/internal/crypto"
	"wisp/internal/domain/types"
	"wisp/internal/protocol/ratchet"
)

func fixedRoot() []byte { return bytes.Repeat([]byte{0x42}, 32) }

func bobStatic(t *testing.T) (priv types.X25519Private, pub types.X25519Public) {
	t.Helper()
	p, P, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return p, P
}

func TestRatchet_OneRoundTrip(t *testing.T) {
	bobPriv, bobPub := bobStatic(t)

	alice, err := ratchet.InitSender(fixedRoot(), bobPub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob, err := ratchet.InitReceiver(fixedRoot(), bobPriv, bobPub, alice.DiffieHellmanPublic)
	if err != nil {
		t.Fatalf("InitReceiver: %v", err)
	}

	header, ct, err := ratchet.Encrypt(&alice, nil, []byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := ratchet.Decrypt(&bob, nil, header, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("got %q, want %q", pt, "hello")
	}
}

func TestRatchet_MultiMessageBothDirections(t *testing.T) {
	bobPriv, bobPub := bobStatic(t)

	alice, err := ratchet.InitSender(fixedRoot(), bobPub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob, err := ratchet.InitReceiver(fixedRoot(), bobPriv, bobPub, alice.DiffieHellmanPublic)
	if err != nil {
		t.Fatalf("InitReceiver: %v", err)
	}

	for i := 0; i < 3; i++ {
		h, ct, err := ratchet.Encrypt(&alice, nil, []byte("a->b"))
		if err != nil {
			t.Fatalf("Encrypt a->b: %v", err)
		}
		pt, err := ratchet.Decrypt(&bob, nil, h, ct)
		if err != nil {
			t.Fatalf("Decrypt a->b: %v", err)
		}
		if string(pt) != "a->b" {
			t.Fatalf("round %d: got %q", i, pt)
		}
	}

	// Bob replies, forcing a DH ratchet step on both sides.
	h, ct, err := ratchet.Encrypt(&bob, nil, []byte("b->a"))
	if err != nil {
		t.Fatalf("Encrypt b->a: %v", err)
	}
	pt, err := ratchet.Decrypt(&alice, nil, h, ct)
	if err != nil {
		t.Fatalf("Decrypt b->a: %v", err)
	}
	if string(pt) != "b->a" {
		t.Fatalf("got %q", pt)
	}
}

func TestRatchet_OutOfOrderDelivery(t *testing.T) {
	bobPriv, bobPub := bobStatic(t)

	alice, err := ratchet.InitSender(fixedRoot(), bobPub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob, err := ratchet.InitReceiver(fixedRoot(), bobPriv, bobPub, alice.DiffieHellmanPublic)
	if err != nil {
		t.Fatalf("InitReceiver: %v", err)
	}

	h1, ct1, err := ratchet.Encrypt(&alice, nil, []byte("one"))
	if err != nil {
		t.Fatalf("Encrypt 1: %v", err)
	}
	h2, ct2, err := ratchet.Encrypt(&alice, nil, []byte("two"))
	if err != nil {
		t.Fatalf("Encrypt 2: %v", err)
	}

	// Deliver message 2 first; message 1's key should be cached as skipped.
	pt2, err := ratchet.Decrypt(&bob, nil, h2, ct2)
	if err != nil {
		t.Fatalf("Decrypt 2: %v", err)
	}
	if string(pt2) != "two" {
		t.Fatalf("got %q", pt2)
	}

	pt1, err := ratchet.Decrypt(&bob, nil, h1, ct1)
	if err != nil {
		t.Fatalf("Decrypt 1 (skipped): %v", err)
	}
	if string(pt1) != "one" {
		t.Fatalf("got %q", pt1)
	}
}

func TestRatchet_TooManySkippedFailsHard(t *testing.T) {
	bobPriv, bobPub := bobStatic(t)

	alice, err := ratchet.InitSender(fixedRoot(), bobPub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob, err := ratchet.InitReceiver(fixedRoot(), bobPriv, bobPub, alice.DiffieHellmanPublic)
	if err != nil {
		t.Fatalf("InitReceiver: %v", err)
	}

	var last types.RatchetHeader
	var lastCt []byte
	for i := 0; i <= ratchet.MaxSkipPerStep+1; i++ {
		h, ct, err := ratchet.Encrypt(&alice, nil, []byte("x"))
		if err != nil {
			t.Fatalf("Encrypt %d: %v", i, err)
		}
		last, lastCt = h, ct
	}

	if _, err := ratchet.Decrypt(&bob, nil, last, lastCt); !errors.Is(err, ratchet.ErrTooManySkipped) {
		t.Fatalf("want ErrTooManySkipped, got %v", err)
	}
}

func TestRatchet_TamperedCiphertextFails(t *testing.T) {
	bobPriv, bobPub := bobStatic(t)

	alice, err := ratchet.InitSender(fixedRoot(), bobPub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob, err := ratchet.InitReceiver(fixedRoot(), bobPriv, bobPub, alice.DiffieHellmanPublic)
	if err != nil {
		t.Fatalf("InitReceiver: %v", err)
	}

	h, ct, err := ratchet.Encrypt(&alice, nil, []byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0xff

	if _, err := ratchet.Decrypt(&bob, nil, h, ct); err == nil {
		t.Fatal("want decrypt error on tampered ciphertext")
	}
}
