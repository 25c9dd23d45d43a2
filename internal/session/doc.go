// Package session implements the client-side C7 session manager: it keeps
// one Double Ratchet per peer in memory, bootstraps new peers with X3DH,
// and drives the relay client to deliver and receive ratchet-sealed
// envelopes. It is the concrete implementation of interfaces.UI.
//
// Ratchet state is deliberately never persisted: a Manager holds it only
// for the lifetime of the process, so restarting the client always starts
// every conversation from a fresh X3DH handshake rather than resuming
// key material that touched disk.
package session
