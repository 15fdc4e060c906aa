package types

import "crypto/subtle"

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// Equal compares two public keys in constant time.
func (p X25519Public) Equal(o X25519Public) bool {
	return subtle.ConstantTimeCompare(p[:], o[:]) == 1
}

// IsZero reports whether the key is unset.
func (p X25519Public) IsZero() bool { return p == X25519Public{} }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// KeyPair is an X25519 private/public pair. The private half is clamped.
type KeyPair struct {
	Private X25519Private `json:"priv" cbor:"1,keyasint"`
	Public  X25519Public  `json:"pub" cbor:"2,keyasint"`
}

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }
