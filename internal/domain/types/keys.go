package types

import "fmt"

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// MustX25519Public copies b into an X25519Public, panicking on a bad length.
// Used when the caller has already validated the size (e.g. after a
// successful AEAD open of a local key file).
func MustX25519Public(b []byte) X25519Public {
	var out X25519Public
	if len(b) != len(out) {
		panic(fmt.Sprintf("x25519 public key: want %d bytes, got %d", len(out), len(b)))
	}
	copy(out[:], b)
	return out
}

// MustX25519Private copies b into an X25519Private, panicking on a bad length.
func MustX25519Private(b []byte) X25519Private {
	var out X25519Private
	if len(b) != len(out) {
		panic(fmt.Sprintf("x25519 private key: want %d bytes, got %d", len(out), len(b)))
	}
	copy(out[:], b)
	return out
}

// MustEd25519Public copies b into an Ed25519Public, panicking on a bad length.
func MustEd25519Public(b []byte) Ed25519Public {
	var out Ed25519Public
	if len(b) != len(out) {
		panic(fmt.Sprintf("ed25519 public key: want %d bytes, got %d", len(out), len(b)))
	}
	copy(out[:], b)
	return out
}

// MustEd25519Private copies b into an Ed25519Private, panicking on a bad length.
func MustEd25519Private(b []byte) Ed25519Private {
	var out Ed25519Private
	if len(b) != len(out) {
		panic(fmt.Sprintf("ed25519 private key: want %d bytes, got %d", len(out), len(b)))
	}
	copy(out[:], b)
	return out
}
