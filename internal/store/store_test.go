package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/domain"
)

func TestIdentityFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewIdentityFileStore(dir)

	id := domain.Identity{
		XPub:  domain.MustX25519Public(bytesOf(1)),
		XPriv: domain.MustX25519Private(bytesOf(2)),
		EdPub: domain.MustEd25519Public(bytesOfN(3, 32)),
	}
	id.EdPriv = domain.MustEd25519Private(bytesOfN(4, 64))

	require.NoError(t, s.SaveIdentity("correct horse", id))

	got, err := s.LoadIdentity("correct horse")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = s.LoadIdentity("wrong passphrase")
	assert.Error(t, err)
}

func TestPrekeyFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewPrekeyFileStore(dir)

	spkID := domain.SignedPreKeyID("spk-1")
	priv := domain.MustX25519Private(bytesOf(5))
	pub := domain.MustX25519Public(bytesOf(6))
	sig := []byte("signature-bytes")

	require.NoError(t, s.SaveSignedPreKey(spkID, priv, pub, sig))
	require.NoError(t, s.SetCurrentSignedPreKeyID(spkID))

	gotPriv, gotPub, gotSig, ok, err := s.LoadSignedPreKey(spkID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, priv, gotPriv)
	assert.Equal(t, pub, gotPub)
	assert.Equal(t, sig, gotSig)

	curID, ok, err := s.CurrentSignedPreKeyID()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, spkID, curID)

	_, _, _, ok, err = s.LoadSignedPreKey("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	otpk := domain.OneTimePreKeyPair{
		ID:   domain.OneTimePreKeyID("otpk-1"),
		Priv: domain.MustX25519Private(bytesOf(7)),
		Pub:  domain.MustX25519Public(bytesOf(8)),
	}
	require.NoError(t, s.SaveOneTimePreKeys([]domain.OneTimePreKeyPair{otpk}))

	pubs, err := s.ListOneTimePreKeyPublics()
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, otpk.ID, pubs[0].ID)

	gotOTPKPriv, gotOTPKPub, consumed, err := s.ConsumeOneTimePreKey(otpk.ID)
	require.NoError(t, err)
	require.True(t, consumed)
	assert.Equal(t, otpk.Priv, gotOTPKPriv)
	assert.Equal(t, otpk.Pub, gotOTPKPub)

	// Consuming twice yields nothing the second time.
	_, _, consumed, err = s.ConsumeOneTimePreKey(otpk.ID)
	require.NoError(t, err)
	assert.False(t, consumed)

	pubs, err = s.ListOneTimePreKeyPublics()
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestBundleFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewBundleFileStore(dir)

	_, ok, err := s.LoadPreKeyBundle("alice")
	require.NoError(t, err)
	assert.False(t, ok)

	bundle := domain.PreKeyBundle{
		Username:       "alice",
		IdentityKey:    domain.MustX25519Public(bytesOf(9)),
		SigningKey:     domain.MustEd25519Public(bytesOfN(10, 32)),
		SignedPreKeyID: "spk-1",
		SignedPreKey:   domain.MustX25519Public(bytesOf(11)),
	}
	require.NoError(t, s.SavePreKeyBundle(bundle))

	got, ok, err := s.LoadPreKeyBundle("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bundle, got)
}

func bytesOf(seed byte) []byte {
	return bytesOfN(seed, 32)
}

func bytesOfN(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed
	}
	return b
}
