// Package ratchet implements the Double Ratchet algorithm following Signal's design.
//
// The algorithm maintains a root key, a sending chain and a small set of
// receiving chains. Each message advances a KDF chain so that keys are forward
// secure. When a party sees a new ratchet public key from its peer, both sides
// derive new chain keys from a root updated via Diffie–Hellman.
//
// # Lifecycle
//
// A State is created once, at the end of the X3DH handshake, by either
// InitAsInitiator or InitAsResponder. It is then only advanced by Encrypt and
// Decrypt and persisted with Serialize / Deserialize. A failed Decrypt leaves
// the State exactly as it was.
//
// # Bounds
//
// Message keys for skipped messages are cached (SkippedKeys) up to
// Config.MaxSkip per advance and Config.MaxSkippedKeys in total, and expire
// after Config.MaxSkippedKeyAge. Only the current and the immediately prior
// receiving chain are retained.
//
// Concurrency: State is NOT safe for concurrent use. Callers must
// serialise access per conversation.
package ratchet
