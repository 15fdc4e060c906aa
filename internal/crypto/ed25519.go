package crypto

import (
	"crypto/ed25519"

	"cipherline/internal/domain"
)

const signingKeyLabel = "cipherline/identity-signing"

// SigningKeyFromIdentity derives the Ed25519 signing pair that belongs to an
// X25519 identity private key. The same identity always yields the same
// signing key.
func SigningKeyFromIdentity(xpriv domain.X25519Private) (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	seed := make([]byte, ed25519.SeedSize)
	defer Wipe(seed)
	if err = HKDF(xpriv.Slice(), nil, []byte(signingKeyLabel), seed); err != nil {
		return priv, pub, err
	}
	sk := ed25519.NewKeyFromSeed(seed)
	defer Wipe(sk)
	copy(priv[:], sk)
	copy(pub[:], sk.Public().(ed25519.PublicKey))
	return priv, pub, nil
}

// SignEd25519 signs msg with priv and returns the signature.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyEd25519 verifies sig over msg with pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
