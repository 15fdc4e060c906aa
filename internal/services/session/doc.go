// Package session establishes and tracks X3DH sessions.
//
// The initiator side fetches a bundle, runs the handshake and seeds a Double
// Ratchet state. The responder side turns a received PreKeyMessage into a
// session and ratchet state. The message service persists it, and consumes
// the one-time pre-key, only once the first message authenticates.
package session
