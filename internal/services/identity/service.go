// Package identity implements IdentityService: generating, persisting, and
// fingerprinting a user's long-term X25519/Ed25519 key pair.
package identity

import (
	"wisp/internal/crypto"
	"wisp/internal/domain"
)

// Service implements domain.IdentityService over an IdentityStore.
type Service struct {
	store domain.IdentityStore
}

// New returns a Service backed by store.
func New(store domain.IdentityStore) *Service {
	return &Service{store: store}
}

var _ domain.IdentityService = (*Service)(nil)

// GenerateIdentity creates a fresh identity key pair, seals it to disk under
// passphrase, and returns it alongside its public fingerprint.
func (s *Service) GenerateIdentity(passphrase string) (domain.Identity, domain.Fingerprint, error) {
	xpriv, xpub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	edpriv, edpub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		XPub:   xpub,
		XPriv:  xpriv,
		EdPub:  edpub,
		EdPriv: edpriv,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice())), nil
}

// LoadIdentity decrypts and returns the identity stored under passphrase.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity loads the identity under passphrase and returns its
// public fingerprint, for display and out-of-band verification.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice())), nil
}
