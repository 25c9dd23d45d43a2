package envelope_test

import (
	"errors"
	"testing"

	"wisp/internal/crypto"
	"wisp/internal/protocol/envelope"
)

func key(t *testing.T) []byte {
	t.Helper()
	k, err := crypto.RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	return k
}

func TestEnvelope_SealOpenRoundTrip(t *testing.T) {
	k := key(t)
	blob, err := envelope.Seal(k, []byte("header-bytes"), []byte("hello, world"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := envelope.Open(k, blob, []byte("header-bytes"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "hello, world" {
		t.Fatalf("plaintext mismatch: got %q", pt)
	}
}

func TestEnvelope_WrongKeyFails(t *testing.T) {
	blob, err := envelope.Seal(key(t), nil, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := envelope.Open(key(t), blob, nil); err == nil {
		t.Fatal("want error opening with wrong key")
	}
}

func TestEnvelope_WrongAssociatedDataFails(t *testing.T) {
	k := key(t)
	blob, err := envelope.Seal(k, []byte("ctx-a"), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := envelope.Open(k, blob, []byte("ctx-b")); !errors.Is(err, envelope.ErrAssociatedDataMismatch) {
		t.Fatalf("want ErrAssociatedDataMismatch, got %v", err)
	}
}

func TestEnvelope_MalformedBlob(t *testing.T) {
	if _, err := envelope.Open(key(t), "not-base64!!", nil); err == nil {
		t.Fatal("want base64 decode error")
	}
	if _, err := envelope.Open(key(t), "QQ==", nil); err == nil {
		t.Fatal("want ErrMalformed on short blob")
	}
}
