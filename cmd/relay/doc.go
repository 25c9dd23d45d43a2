// Package main runs the store-and-forward-free WebSocket relay: a pure
// router that mediates client<->client sessions and publishes its own
// pre-key bundle so clients can X3DH against it before ever exchanging a
// sealed frame.
//
// HTTP API
//
//	GET /relay-bundle
//	    Return the relay's own PreKeyBundle, handing out one one-time
//	    pre-key from its pool per call if any remain.
//
//	GET /ws
//	    Upgrade to a WebSocket connection. The first frame a client sends
//	    must be establish_connection, carrying the PreKeyMessage from an
//	    X3DH handshake run against the bundle above; every frame after
//	    that is an AES-256-GCM-sealed Frame (see internal/relay and
//	    internal/domain/types/wire.go) of type register, get_user_bundle,
//	    or send_message.
//
//	GET /healthz
//	    Liveness probe.
//
// Behaviour
//
//   - The relay's long-term identity (encrypted under --passphrase) and its
//     signed pre-key pair (plain JSON) are persisted to --home (default
//     $HOME/.wisp-relay) and reloaded on every restart, so a restart never invalidates bundles
//     clients have already pinned. The one-time pre-key pool, registered
//     usernames/bundles, and live connections are not persisted and are
//     regenerated or forgotten on process exit.
//   - register rejects a username already present in the registry with
//     StatusConflict; usernames must be non-empty and alphanumeric.
//   - send_message is delivered only to a currently-connected recipient;
//     the relay does not queue for offline users.
//   - The default listen address is :8080.
package main
