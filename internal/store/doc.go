// Package store provides file-based persistence for the local identity and
// pre-key material the cryptographic core needs across restarts.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking. Stored files live under the user's configured home
// directory. The identity file is additionally sealed at rest (see
// crypto_envelope.go) with a passphrase-derived key through the same
// AES-256-GCM envelope the protocol layer uses on the wire.
//
// Session and ratchet state are deliberately NOT persisted here: they live
// only in memory for the lifetime of a running client (see internal/session),
// so a restart starts every conversation from a fresh X3DH handshake rather
// than resuming a ratchet whose key material touched disk.
//
// The package includes stores for:
//   - Identity keys (IdentityFileStore)
//   - Signed and one-time pre-keys (PrekeyFileStore)
//   - Pre-key bundles (BundleFileStore)
package store
