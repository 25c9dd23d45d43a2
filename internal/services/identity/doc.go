// Package identity manages creation, encryption and loading of the local identity.
//
// It generates X25519 and Ed25519 key pairs and persists them via the
// domain.IdentityStore. It applies no passphrase policy of its own.
package identity
