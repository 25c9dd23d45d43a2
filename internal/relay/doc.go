// Package relay implements the C6/C7/C8 transport between clients and the
// relay server: a WebSocket connection per client, framed with the wire
// types in internal/domain/types/wire.go, control-plane traffic sealed
// under a key derived once from an X3DH handshake with the relay's own
// long-term identity.
//
// Bootstrap is the one part of the protocol that cannot yet be sealed: a
// client fetches the relay's published pre-key bundle over a plain HTTP GET
// (the client's fetchServerBundle against Server.HandleBundle), runs X3DH against it exactly as it would against any
// peer, and only then dials the WebSocket and sends its first frame
// (establish_connection) carrying the resulting PreKeyMessage in the clear.
// Every frame after that is opened and sealed with internal/protocol/envelope
// under the control-channel key derived from the shared root.
//
// The relay holds no state across restarts: registered bundles, one-time
// pre-key pools, and live connections all live in memory only (see
// registry.go), matching the in-memory-only lifecycle the rest of the
// session layer follows. It is a pure router: send_message is only
// delivered to a currently-connected recipient, never queued.
package relay
