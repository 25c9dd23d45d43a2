package interfaces

import domaintypes "wisp/internal/domain/types"

// UI is the contract the cryptographic core expects from whatever presents
// it to a human. The core makes no assumption beyond plaintext bytes in and
// out; a terminal REPL, a GUI, or a test harness can all satisfy it.
type UI interface {
	// Send hands plaintext to the core to be encrypted and delivered to peer.
	Send(peer domaintypes.Username, plaintext []byte) error
	// Receive blocks until a decrypted message arrives.
	Receive() (peer domaintypes.Username, plaintext []byte, timestampUTC int64, err error)
	// AddPeer starts a session with peer, fetching their bundle from the relay.
	AddPeer(peer domaintypes.Username) error
	// Register claims username on the relay.
	Register(username domaintypes.Username) error
}
