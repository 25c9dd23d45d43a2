package x3dh_test

import (
	"bytes"
	"errors"
	"testing"

	"wisp/internal/crypto"
	"wisp/internal/domain/types"
	"wisp/internal/protocol/x3dh"
)

// makeIdentity creates an Identity with fresh X25519 and Ed25519 pairs.
func makeIdentity(t *testing.T) types.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return types.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func buildBundle(t *testing.T, bob types.Identity, withOPK bool) (types.PreKeyBundle, types.X25519Private, *types.X25519Private) {
	t.Helper()
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	sig := crypto.SignEd25519(bob.EdPriv, spkPub.Slice())

	bundle := types.PreKeyBundle{
		Username:              "bob",
		IdentityKey:           bob.XPub,
		SigningKey:            bob.EdPub,
		SignedPreKeyID:        "spk-1",
		SignedPreKey:          spkPub,
		SignedPreKeySignature: sig,
	}

	var opkPrivPtr *types.X25519Private
	if withOPK {
		opkPriv, opkPub, err := crypto.GenerateX25519()
		if err != nil {
			t.Fatalf("GenerateX25519 (opk): %v", err)
		}
		bundle.OneTimePreKey = &types.OneTimePreKeyPublic{ID: "opk-1", Pub: opkPub}
		opkPrivPtr = &opkPriv
	}
	return bundle, spkPriv, opkPrivPtr
}

func TestX3DH_RootKeysMatch_NoOPK(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, _ := buildBundle(t, bob, false)

	rkA, _, pm, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if pm.OneTimePreKeyID != "" {
		t.Fatalf("want empty OneTimePreKeyID, got %q", pm.OneTimePreKeyID)
	}

	rkB, err := x3dh.ResponderRoot(bob, spkPriv, nil, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rkA, rkB) {
		t.Fatal("root keys differ (no OPK)")
	}
}

func TestX3DH_RootKeysMatch_WithOPK(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, opkPriv := buildBundle(t, bob, true)

	rkA, _, pm, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if pm.OneTimePreKeyID != "opk-1" {
		t.Fatalf("want opk-1, got %q", pm.OneTimePreKeyID)
	}

	rkB, err := x3dh.ResponderRoot(bob, spkPriv, opkPriv, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(rkA, rkB) {
		t.Fatal("root keys differ (with OPK)")
	}
}

func TestX3DH_RejectsBadSignature(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, _, _ := buildBundle(t, bob, false)
	bundle.SignedPreKeySignature[0] ^= 0xff

	if _, _, _, err := x3dh.InitiatorRoot(alice, bundle); !errors.Is(err, x3dh.ErrBadSignedPreKeySignature) {
		t.Fatalf("want ErrBadSignedPreKeySignature, got %v", err)
	}
}

func TestX3DH_RejectsTranscriptTamper(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, _ := buildBundle(t, bob, false)

	_, _, pm, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	pm.TranscriptSHA256[0] ^= 0xff

	if _, err := x3dh.ResponderRoot(bob, spkPriv, nil, pm); err == nil {
		t.Fatal("want error on tampered transcript binding")
	}
}
