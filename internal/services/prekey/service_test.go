package prekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/domain"
	identitysvc "wisp/internal/services/identity"
	"wisp/internal/store"
)

func newTestStores(t *testing.T) (domain.IdentityStore, domain.PreKeyStore) {
	t.Helper()
	dir := t.TempDir()
	return store.NewIdentityFileStore(dir), store.NewPrekeyFileStore(dir)
}

func TestGenerateAndStorePreKeysThenLoadBundle(t *testing.T) {
	idStore, pkStore := newTestStores(t)
	idSvc := identitysvc.New(idStore)
	pkSvc := New(idStore, pkStore)

	_, _, err := idSvc.GenerateIdentity("hunter2")
	require.NoError(t, err)

	spkID, spkPub, otpks, err := pkSvc.GenerateAndStorePreKeys("hunter2", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, spkID)
	assert.NotZero(t, spkPub)
	assert.Len(t, otpks, 3)

	bundle, err := pkSvc.LoadBundle("hunter2", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Username("alice"), bundle.Username)
	assert.Equal(t, spkID, bundle.SignedPreKeyID)
	assert.Equal(t, spkPub, bundle.SignedPreKey)
	require.NotNil(t, bundle.OneTimePreKey)

	// The consumed one-time pre-key is gone from the next bundle assembly.
	bundle2, err := pkSvc.LoadBundle("hunter2", "alice")
	require.NoError(t, err)
	if bundle2.OneTimePreKey != nil {
		assert.NotEqual(t, bundle.OneTimePreKey.ID, bundle2.OneTimePreKey.ID)
	}
}

func TestLoadBundleWithoutPreKeysFails(t *testing.T) {
	idStore, pkStore := newTestStores(t)
	idSvc := identitysvc.New(idStore)
	pkSvc := New(idStore, pkStore)

	_, _, err := idSvc.GenerateIdentity("hunter2")
	require.NoError(t, err)

	_, err = pkSvc.LoadBundle("hunter2", "alice")
	assert.ErrorIs(t, err, domain.ErrNoSignedPreKey)
}
