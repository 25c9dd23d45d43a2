package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"wisp/internal/crypto"
	"wisp/internal/domain"
	"wisp/internal/relay"
	"wisp/internal/store"
)

const (
	defaultPort       = 8080
	minPort           = 0
	maxPort           = 65535
	readHeaderTO      = 5 * time.Second
	idleTO            = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
	serverOneTimeKeys = 20
)

var (
	port          int
	enableLogging bool
	homeDir       string
	passphrase    string
)

// loadOrCreateIdentity loads the relay's long-term identity and signed
// pre-key pair from homeDir if a prior run created them there, so a restart
// keeps publishing the same identity every client has already pinned; on
// first start (no identity file yet) it generates and persists a fresh
// pair. The one-time pre-key pool is never persisted: it is cheap to
// regenerate and nothing depends on it surviving a restart the way the
// long-term identity does.
func loadOrCreateIdentity(idStore domain.IdentityStore, prekeyStore domain.PreKeyStore, passphrase string) (
	domain.Identity, domain.SignedPreKeyID, domain.X25519Private, domain.X25519Public, []byte, []domain.OneTimePreKeyPair, error,
) {
	id, err := idStore.LoadIdentity(passphrase)
	switch {
	case err == nil:
		spkID, ok, err := prekeyStore.CurrentSignedPreKeyID()
		if err != nil {
			return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
		}
		if !ok {
			return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, fmt.Errorf("relay: identity present but no signed pre-key recorded in %s", homeDir)
		}
		spkPriv, spkPub, sig, ok, err := prekeyStore.LoadSignedPreKey(spkID)
		if err != nil {
			return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
		}
		if !ok {
			return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, fmt.Errorf("relay: signed pre-key %s missing from store", spkID)
		}
		otpks, err := freshOneTimePreKeys()
		return id, spkID, spkPriv, spkPub, sig, otpks, err

	case os.IsNotExist(err):
		return createIdentity(idStore, prekeyStore, passphrase)

	default:
		// A file exists but failed to decrypt: almost certainly the wrong
		// passphrase. Fail loudly rather than silently overwrite it with a
		// freshly generated identity.
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, fmt.Errorf("relay: loading identity from %s: %w", homeDir, err)
	}
}

// createIdentity generates a fresh long-term identity and signed pre-key,
// persists both under passphrase, and returns them alongside a fresh
// one-time pre-key pool.
func createIdentity(idStore domain.IdentityStore, prekeyStore domain.PreKeyStore, passphrase string) (
	domain.Identity, domain.SignedPreKeyID, domain.X25519Private, domain.X25519Public, []byte, []domain.OneTimePreKeyPair, error,
) {
	xpriv, xpub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}
	edpriv, edpub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}
	id := domain.Identity{XPub: xpub, XPriv: xpriv, EdPub: edpub, EdPriv: edpriv}
	if err := idStore.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}

	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}
	spkID := domain.SignedPreKeyID("relay-spk-1")
	sig := crypto.SignEd25519(edpriv, spkPub.Slice())
	if err := prekeyStore.SaveSignedPreKey(spkID, spkPriv, spkPub, sig); err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}
	if err := prekeyStore.SetCurrentSignedPreKeyID(spkID); err != nil {
		return domain.Identity{}, "", domain.X25519Private{}, domain.X25519Public{}, nil, nil, err
	}

	otpks, err := freshOneTimePreKeys()
	return id, spkID, spkPriv, spkPub, sig, otpks, err
}

func freshOneTimePreKeys() ([]domain.OneTimePreKeyPair, error) {
	otpks := make([]domain.OneTimePreKeyPair, 0, serverOneTimeKeys)
	for i := 0; i < serverOneTimeKeys; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		otpks = append(otpks, domain.OneTimePreKeyPair{ID: domain.OneTimePreKeyID(fmt.Sprintf("relay-otpk-%d", i)), Priv: priv, Pub: pub})
	}
	return otpks, nil
}

// main starts the relay's WebSocket server and its bootstrap HTTP endpoint.
func main() {
	pflag.IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	pflag.BoolVar(&enableLogging, "log", false, "enable access logging")
	pflag.StringVar(&homeDir, "home", "", "directory holding the relay's persisted identity (default: $HOME/.wisp-relay)")
	pflag.StringVar(&passphrase, "passphrase", "", "passphrase protecting the relay's identity at rest")
	pflag.Parse()

	if port <= minPort || port > maxPort {
		port = defaultPort
	}
	if homeDir == "" {
		if h, err := os.UserHomeDir(); err == nil {
			homeDir = filepath.Join(h, ".wisp-relay")
		}
	}

	level := slog.LevelWarn
	if enableLogging {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(log.Writer(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(homeDir, 0o700); err != nil {
		slog.Error("creating relay state directory", "dir", homeDir, "error", err)
		os.Exit(1)
	}
	idStore := store.NewIdentityFileStore(homeDir)
	prekeyStore := store.NewPrekeyFileStore(homeDir)

	identity, spkID, spkPriv, spkPub, sig, otpks, err := loadOrCreateIdentity(idStore, prekeyStore, passphrase)
	if err != nil {
		slog.Error("loading relay identity", "error", err)
		os.Exit(1)
	}

	srv := relay.NewServer(identity, spkID, spkPriv, spkPub, sig, otpks, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /relay-bundle", srv.HandleBundle)
	mux.HandleFunc("GET /ws", srv.HandleWebSocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTO,
		IdleTimeout:       idleTO,
	}

	go func() {
		slog.Info("relay listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
