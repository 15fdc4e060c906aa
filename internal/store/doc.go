// Package store provides persistence for cipherline's local state.
//
// It contains concrete implementations of the domain storage interfaces.
// File stores serialise JSON on disk with atomic temp-file replacement; the
// identity is sealed under a passphrase-derived key. RatchetBoltStore keeps
// conversation state in a bbolt database instead of a JSON file. All methods
// are concurrency-safe via internal locking. Stored files live under the
// configured home directory.
//
// The package includes stores for:
//   - Identity keys (IdentityFileStore)
//   - Pre-keys and their id counters (PrekeyFileStore)
//   - The last uploaded pre-key registration (BundleFileStore)
//   - Handshake metadata per peer (SessionFileStore)
//   - Double Ratchet conversation state (RatchetFileStore, RatchetBoltStore)
//   - Relay account profiles (AccountFileStore)
package store
