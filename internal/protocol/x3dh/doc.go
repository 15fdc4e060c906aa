// Package x3dh implements the X3DH key-agreement used to bootstrap a Double Ratchet
// session between two parties.
//
// # Overview
//
// X3DH lets an initiator derive a shared 32-byte secret with a responder who has
// published a pre-key bundle. The bundle contains:
//   - Identity key (X25519) and the Ed25519 signing key derived from it
//   - Signed pre-key (X25519), its id, timestamp and Ed25519 signature
//   - At most one one-time pre-key (X25519) and its id
//
// # Flows
//
// Initiator (Initiate):
//  1. Verify the signed pre-key signature.
//  2. Generate an ephemeral X25519 key pair.
//  3. Compute DH1 = DH(IKa, SPKb), DH2 = DH(EKa, IKb), DH3 = DH(EKa, SPKb)
//     and, with a one-time pre-key, DH4 = DH(EKa, OPKb).
//  4. HKDF over 0xFF*32 || DH1 || DH2 || DH3 [|| DH4] to the shared secret.
//  5. Return the secret, the ephemeral public, the pre-key ids used and the
//     associated data IKa || IKb.
//
// Responder (Respond):
//  1. Receive the PreKeyMessage (initiator IK, ephemeral EK, SPK id[, OPK id]).
//  2. Look up the one-time pre-key, if referenced, through OneTimePreKeySource.
//  3. Compute the mirrored DH set and derive the identical secret.
//  4. Mark the one-time pre-key consumed.
//
// # Errors
//
// Failures are *HandshakeError values wrapping ErrInvalidSignature,
// ErrUnknownPreKeyID, ErrSignedPreKeyMismatch or a lower-level crypto error.
// None of them is retryable with the same inputs.
package x3dh
