package types

// Identity holds your long-term X25519 key and the Ed25519 key derived from it.
type Identity struct {
	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// KeyPair returns the X25519 half of the identity.
func (id Identity) KeyPair() KeyPair {
	return KeyPair{Private: id.XPriv, Public: id.XPub}
}
