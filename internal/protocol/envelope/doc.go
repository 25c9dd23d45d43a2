// Package envelope implements the application-level AEAD framing used to
// carry a Double Ratchet ciphertext (or any opaque payload) as a single
// self-describing blob, independent of whatever transport moves it.
//
// A sealed envelope is:
//
//	nonce[12] || ad_length[2, big-endian] || ad || ciphertext_with_tag
//
// and is exchanged base64-encoded wherever it sits inside JSON.
package envelope
