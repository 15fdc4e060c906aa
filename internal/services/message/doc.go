// Package message sends and receives encrypted messages.
//
// Each peer's ratchet state is loaded, advanced and saved under a per-peer
// lock. Incoming PreKeyMessages bootstrap the responder side of a session.
// A message that fails to authenticate is dropped without touching the
// stored state, and reported in the returned error.
package message
