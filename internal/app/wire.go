package app

import (
	"strings"

	"wisp/internal/domain"
	identitysvc "wisp/internal/services/identity"
	prekeysvc "wisp/internal/services/prekey"
	"wisp/internal/relay"
	"wisp/internal/session"
	"wisp/internal/store"
)

// Wire bundles all stores, services, and relay endpoints for the CLI.
type Wire struct {
	IdentityService domain.IdentityService
	PreKeyService   domain.PreKeyService
	IdentityStore   domain.IdentityStore
	PreKeyStore     domain.PreKeyStore
	BundleStore     domain.PreKeyBundleStore

	relayHTTP string
	relayWS   string
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	idStore := store.NewIdentityFileStore(cfg.Home)
	prekeyStore := store.NewPrekeyFileStore(cfg.Home)
	bundleStore := store.NewBundleFileStore(cfg.Home)

	return &Wire{
		IdentityService: identitysvc.New(idStore),
		PreKeyService:   prekeysvc.New(idStore, prekeyStore),
		IdentityStore:   idStore,
		PreKeyStore:     prekeyStore,
		BundleStore:     bundleStore,
		relayHTTP:       strings.TrimSuffix(cfg.RelayURL, "/"),
		relayWS:         relayWSURL(cfg.RelayURL),
	}, nil
}

// relayWSURL derives the relay's WebSocket endpoint from its HTTP base URL.
func relayWSURL(httpURL string) string {
	ws := strings.TrimSuffix(httpURL, "/")
	ws = strings.Replace(ws, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return ws + "/ws"
}

// Connect loads the local identity under passphrase, dials the relay as
// username, and returns a session.Manager ready to register and chat.
func (w *Wire) Connect(passphrase string, username domain.Username) (*session.Manager, error) {
	id, err := w.IdentityService.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	client, err := relay.Dial(w.relayHTTP, w.relayWS, id, username)
	if err != nil {
		return nil, err
	}
	return session.NewManager(id, username, w.PreKeyStore, client), nil
}
