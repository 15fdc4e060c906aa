// Package prekey manages signed pre-keys and one-time pre-keys for X3DH bootstrap.
//
// It rotates the current signed pre-key, prunes superseded ones once their
// retention window has passed, generates batches of one-time pre-keys with
// ids that are never reused, and assembles the registration uploaded to the
// relay.
package prekey
