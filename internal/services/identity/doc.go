// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the X25519 identity key (the
// Ed25519 signing key is derived from it), and persists both via the
// domain.IdentityStore.
package identity
