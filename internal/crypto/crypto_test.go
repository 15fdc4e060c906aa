package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

func TestDHAgreement(t *testing.T) {
	a, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)

	ab, err := crypto.DH(a.Private, b.Public)
	require.NoError(t, err)
	ba, err := crypto.DH(b.Private, a.Public)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
}

func TestDHRejectsLowOrderPoint(t *testing.T) {
	a, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)
	_, err = crypto.DH(a.Private, domain.X25519Public{})
	require.Error(t, err)
}

func TestKeyPairFromSeed(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = 0xff
	}
	kp1, err := crypto.KeyPairFromSeed(seed)
	require.NoError(t, err)
	kp2, err := crypto.KeyPairFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, kp1, kp2)

	// Clamped per RFC 7748.
	require.Equal(t, byte(0), kp1.Private[0]&7)
	require.Equal(t, byte(0x40), kp1.Private[31]&0xc0)

	pub, err := crypto.PublicFromPrivate(kp1.Private)
	require.NoError(t, err)
	require.Equal(t, kp1.Public, pub)
}

func TestGenerateKeyPairShortReader(t *testing.T) {
	_, err := crypto.GenerateKeyPair(bytes.NewReader(make([]byte, 10)))
	require.Error(t, err)
}

func TestSigningKeyFromIdentity(t *testing.T) {
	id, err := crypto.NewIdentity(nil)
	require.NoError(t, err)

	priv, pub, err := crypto.SigningKeyFromIdentity(id.XPriv)
	require.NoError(t, err)
	require.Equal(t, id.EdPriv, priv)
	require.Equal(t, id.EdPub, pub)

	sig := crypto.SignEd25519(id.EdPriv, id.XPub[:])
	require.True(t, crypto.VerifyEd25519(id.EdPub, id.XPub[:], sig))
	require.False(t, crypto.VerifyEd25519(id.EdPub, []byte("other"), sig))
	require.False(t, crypto.VerifyEd25519(id.EdPub, id.XPub[:], sig[:10]))

	other, err := crypto.NewIdentity(nil)
	require.NoError(t, err)
	require.NotEqual(t, id.EdPub, other.EdPub)
}

func TestHKDF(t *testing.T) {
	a := make([]byte, 64)
	b := make([]byte, 64)
	require.NoError(t, crypto.HKDF([]byte("secret"), nil, []byte("one"), a))
	require.NoError(t, crypto.HKDF([]byte("secret"), nil, []byte("two"), b))
	require.NotEqual(t, a, b)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	crypto.Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}

func TestFingerprint(t *testing.T) {
	id, err := crypto.NewIdentity(nil)
	require.NoError(t, err)
	fp := crypto.IdentityFingerprint(id)
	require.Len(t, fp.String(), 20)
	require.Equal(t, fp, crypto.IdentityFingerprint(id))
	require.NotEqual(t, fp, crypto.Fingerprint(id.XPub[:]))
}
