package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/store"
)

func TestGenerateLoadAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	svc := New(store.NewIdentityFileStore(dir))

	id, fp, err := svc.GenerateIdentity("swordfish")
	require.NoError(t, err)
	assert.NotEmpty(t, fp)
	assert.NotZero(t, id.XPub)

	loaded, err := svc.LoadIdentity("swordfish")
	require.NoError(t, err)
	assert.Equal(t, id, loaded)

	fp2, err := svc.FingerprintIdentity("swordfish")
	require.NoError(t, err)
	assert.Equal(t, fp, fp2)

	_, err = svc.LoadIdentity("wrong")
	assert.Error(t, err)
}
