package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/domain"
)

func TestRegistryRegisterAndLookupConsumesOneOTPK(t *testing.T) {
	r := newRegistry()

	bundle := domain.PreKeyBundle{
		Username:       "alice",
		SignedPreKeyID: "spk-1",
	}
	otpks := []domain.OneTimePreKeyPublic{
		{ID: "otk-1"},
		{ID: "otk-2"},
	}
	stored, _ := r.register(bundle, otpks)
	assert.Equal(t, 2, stored)

	got, ok := r.lookup("alice")
	require.True(t, ok)
	require.NotNil(t, got.OneTimePreKey)
	assert.Equal(t, domain.OneTimePreKeyID("otk-1"), got.OneTimePreKey.ID)

	got2, ok := r.lookup("alice")
	require.True(t, ok)
	require.NotNil(t, got2.OneTimePreKey)
	assert.Equal(t, domain.OneTimePreKeyID("otk-2"), got2.OneTimePreKey.ID)

	got3, ok := r.lookup("alice")
	require.True(t, ok)
	assert.Nil(t, got3.OneTimePreKey)

	_, ok = r.lookup("bob")
	assert.False(t, ok)
}

func TestRegistryBindUnbindIsOwnerScoped(t *testing.T) {
	r := newRegistry()
	c1 := &conn{username: "alice"}
	c2 := &conn{username: "alice"}

	r.bind("alice", c1)
	got, ok := r.connFor("alice")
	require.True(t, ok)
	assert.Same(t, c1, got)

	// A reconnect replaces the prior binding.
	r.bind("alice", c2)
	got, ok = r.connFor("alice")
	require.True(t, ok)
	assert.Same(t, c2, got)

	// A stale unbind of the replaced connection must not evict the new one.
	r.unbind("alice", c1)
	got, ok = r.connFor("alice")
	require.True(t, ok)
	assert.Same(t, c2, got)

	r.unbind("alice", c2)
	_, ok = r.connFor("alice")
	assert.False(t, ok)
}
