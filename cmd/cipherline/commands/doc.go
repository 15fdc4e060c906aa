// Package commands defines the cipherline CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - fingerprint    Print the identity fingerprint
//   - register       Publish your pre-keys to a relay
//   - start-session  Establish an X3DH session with a peer
//   - send           Encrypt and send a message
//   - recv           Fetch and decrypt queued messages
//
// # Implementation
//
// The root command loads the optional TOML config, applies flag overrides and
// builds the dependency graph (stores, services, relay client) before any
// subcommand runs. Relay calls share one HTTP client with a timeout.
package commands
