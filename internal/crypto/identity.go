package crypto

import (
	"io"

	"cipherline/internal/domain"
)

// NewIdentity generates a fresh X25519 identity key and its derived Ed25519
// signing key.
func NewIdentity(r io.Reader) (domain.Identity, error) {
	kp, err := GenerateKeyPair(r)
	if err != nil {
		return domain.Identity{}, err
	}
	return IdentityFromKeyPair(kp)
}

// IdentityFromKeyPair completes an identity from its X25519 pair.
func IdentityFromKeyPair(kp domain.KeyPair) (domain.Identity, error) {
	edPriv, edPub, err := SigningKeyFromIdentity(kp.Private)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		XPub:   kp.Public,
		XPriv:  kp.Private,
		EdPub:  edPub,
		EdPriv: edPriv,
	}, nil
}
