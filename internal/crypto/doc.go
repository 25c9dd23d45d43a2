// Package crypto exposes the minimal primitives used by wisp.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     ClampX25519PrivateKey, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - HKDF-SHA-256 key derivation (HKDFSHA256)
//   - AES-256-GCM sealing and opening (AESGCMSeal, AESGCMOpen)
//   - A CSPRNG byte source (RandomBytes)
//   - Constant-time comparison (Equal)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Key generation returns the fixed-size key types defined in internal/domain
// and DH returns a [32]byte shared secret; HKDFSHA256, AESGCMSeal,
// AESGCMOpen, RandomBytes and SignEd25519 return byte slices. Callers should
// treat returned secrets as sensitive and zero them with
// internal/util/memzero once consumed.
package crypto
