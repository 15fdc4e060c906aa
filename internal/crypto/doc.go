// Package crypto exposes the minimal primitives used by cipherline.
//
// Contents
//
//   - X25519 key generation, deterministic derivation from a seed, clamping
//     and Diffie–Hellman (GenerateKeyPair, KeyPairFromSeed, DH)
//   - Ed25519 signing and verification, with the identity signing key derived
//     from the identity X25519 key (SigningKeyFromIdentity, SignEd25519,
//     VerifyEd25519)
//   - HKDF-SHA256 expansion into caller-provided buffers (HKDF)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and rely on Wipe when practical to reduce lifetime in memory.
package crypto
