// Package commands defines the wisp CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create or rotate the local identity
//   - fingerprint  Print the identity fingerprint
//   - register     Generate pre-keys and publish your bundle to a relay
//   - chat         Connect to a relay and exchange messages with a peer
//
// # Implementation
//
// The root command builds a dependency graph (stores, services) before any
// subcommand runs, so handlers share one app.Wire. Commands that need a live
// connection (register, chat) dial the relay themselves via app.Wire.Connect,
// since only they need the resulting session.Manager.
package commands
