package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"

	"cipherline/internal/domain"
)

// ErrLowOrderPoint is returned by DH when the shared secret is all zeros.
var ErrLowOrderPoint = errors.New("crypto: low order point")

// GenerateKeyPair returns a fresh Curve25519 key pair read from r.
// A nil reader selects crypto/rand. The private key is clamped per RFC 7748.
func GenerateKeyPair(r io.Reader) (domain.KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var seed [32]byte
	defer Wipe(seed[:])
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return domain.KeyPair{}, err
	}
	return KeyPairFromSeed(seed)
}

// KeyPairFromSeed deterministically derives a key pair from 32 seed bytes.
func KeyPairFromSeed(seed [32]byte) (domain.KeyPair, error) {
	var kp domain.KeyPair
	kp.Private = domain.X25519Private(seed)
	clamp(&kp.Private)
	pb, err := curve25519.X25519(kp.Private.Slice(), curve25519.Basepoint)
	if err != nil {
		Wipe(kp.Private[:])
		return domain.KeyPair{}, err
	}
	copy(kp.Public[:], pb)
	return kp, nil
}

// PublicFromPrivate recomputes the public half of priv.
func PublicFromPrivate(priv domain.X25519Private) (pub domain.X25519Public, err error) {
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

// DH computes X25519 Diffie–Hellman.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	defer Wipe(secret)
	var zero [32]byte
	if subtle.ConstantTimeCompare(secret, zero[:]) == 1 {
		return out, ErrLowOrderPoint
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
