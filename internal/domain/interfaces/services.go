package interfaces

import domaintypes "wisp/internal/domain/types"

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// PreKeyService generates and assembles your pre-key bundles.
type PreKeyService interface {
	GenerateAndStorePreKeys(passphrase string, count int) (
		domaintypes.SignedPreKeyID,
		domaintypes.X25519Public,
		[]domaintypes.OneTimePreKeyPublic,
		error,
	)
	LoadBundle(passphrase string, username domaintypes.Username) (domaintypes.PreKeyBundle, error)
}
