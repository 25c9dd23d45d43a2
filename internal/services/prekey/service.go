// Package prekey implements PreKeyService: generating the signed and
// one-time pre-keys a peer needs to publish so others can run X3DH against
// them, and assembling the bundle sent out on registration.
package prekey

import (
	"github.com/google/uuid"

	"wisp/internal/crypto"
	"wisp/internal/domain"
)

// Service implements domain.PreKeyService over an IdentityStore and a
// PreKeyStore.
type Service struct {
	identities domain.IdentityStore
	prekeys    domain.PreKeyStore
}

// New returns a Service backed by the given stores.
func New(identities domain.IdentityStore, prekeys domain.PreKeyStore) *Service {
	return &Service{identities: identities, prekeys: prekeys}
}

var _ domain.PreKeyService = (*Service)(nil)

// GenerateAndStorePreKeys generates a fresh signed pre-key (signed with the
// caller's long-term Ed25519 key) and count one-time pre-keys, persists all
// of them, and marks the signed pre-key as current.
func (s *Service) GenerateAndStorePreKeys(passphrase string, count int) (
	domain.SignedPreKeyID,
	domain.X25519Public,
	[]domain.OneTimePreKeyPublic,
	error,
) {
	id, err := s.identities.LoadIdentity(passphrase)
	if err != nil {
		return "", domain.X25519Public{}, nil, err
	}

	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return "", domain.X25519Public{}, nil, err
	}
	spkID := domain.SignedPreKeyID(uuid.NewString())
	sig := crypto.SignEd25519(id.EdPriv, spkPub.Slice())

	if err := s.prekeys.SaveSignedPreKey(spkID, spkPriv, spkPub, sig); err != nil {
		return "", domain.X25519Public{}, nil, err
	}
	if err := s.prekeys.SetCurrentSignedPreKeyID(spkID); err != nil {
		return "", domain.X25519Public{}, nil, err
	}

	pairs := make([]domain.OneTimePreKeyPair, 0, count)
	publics := make([]domain.OneTimePreKeyPublic, 0, count)
	for i := 0; i < count; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return "", domain.X25519Public{}, nil, err
		}
		otkID := domain.OneTimePreKeyID(uuid.NewString())
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: otkID, Priv: priv, Pub: pub})
		publics = append(publics, domain.OneTimePreKeyPublic{ID: otkID, Pub: pub})
	}
	if len(pairs) > 0 {
		if err := s.prekeys.SaveOneTimePreKeys(pairs); err != nil {
			return "", domain.X25519Public{}, nil, err
		}
	}

	return spkID, spkPub, publics, nil
}

// LoadBundle assembles the caller's current publishable pre-key bundle:
// identity keys, current signed pre-key, and one one-time pre-key consumed
// from the local pool if one remains.
func (s *Service) LoadBundle(passphrase string, username domain.Username) (domain.PreKeyBundle, error) {
	id, err := s.identities.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	spkID, ok, err := s.prekeys.CurrentSignedPreKeyID()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return domain.PreKeyBundle{}, domain.ErrNoSignedPreKey
	}
	_, spkPub, sig, ok, err := s.prekeys.LoadSignedPreKey(spkID)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return domain.PreKeyBundle{}, domain.ErrNoSignedPreKey
	}

	bundle := domain.PreKeyBundle{
		Username:              username,
		IdentityKey:           id.XPub,
		SigningKey:            id.EdPub,
		SignedPreKeyID:        spkID,
		SignedPreKey:          spkPub,
		SignedPreKeySignature: sig,
	}

	publics, err := s.prekeys.ListOneTimePreKeyPublics()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if len(publics) > 0 {
		otk := publics[0]
		if _, _, ok, err := s.prekeys.ConsumeOneTimePreKey(otk.ID); err != nil {
			return domain.PreKeyBundle{}, err
		} else if ok {
			bundle.OneTimePreKey = &otk
		}
	}

	return bundle, nil
}
