package ratchet

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"cipherline/internal/crypto"
)

func TestOldSendingChainKeyIsGone(t *testing.T) {
	var sk [32]byte
	_, err := rand.Read(sk[:])
	require.NoError(t, err)
	spk, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)

	alice, err := InitAsInitiator(rand.Reader, sk, spk.Public)
	require.NoError(t, err)
	bob, err := InitAsResponder(sk, spk)
	require.NoError(t, err)

	h, ct, err := alice.Encrypt(nil, []byte("a0"))
	require.NoError(t, err)
	_, err = bob.Decrypt(h, ct, nil)
	require.NoError(t, err)
	h, ct, err = bob.Encrypt(nil, []byte("b0"))
	require.NoError(t, err)

	oldChain := alice.sending.key
	oldRoot := alice.root
	oldPriv := alice.ratchetKey.Private

	_, err = alice.Decrypt(h, ct, nil)
	require.NoError(t, err)

	blob, err := alice.Serialize()
	require.NoError(t, err)
	require.False(t, bytes.Contains(blob, oldChain[:]), "old sending chain key survived the DH step")
	require.False(t, bytes.Contains(blob, oldRoot[:]), "old root key survived the DH step")
	require.False(t, bytes.Contains(blob, oldPriv[:]), "old ratchet private key survived the DH step")
	require.NotEqual(t, oldChain, alice.sending.key)
}

func TestReceivingChainsBounded(t *testing.T) {
	var sk [32]byte
	spk, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)
	alice, err := InitAsInitiator(rand.Reader, sk, spk.Public)
	require.NoError(t, err)
	bob, err := InitAsResponder(sk, spk)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		h, ct, err := alice.Encrypt(nil, []byte("a"))
		require.NoError(t, err)
		_, err = bob.Decrypt(h, ct, nil)
		require.NoError(t, err)
		h, ct, err = bob.Encrypt(nil, []byte("b"))
		require.NoError(t, err)
		_, err = alice.Decrypt(h, ct, nil)
		require.NoError(t, err)
	}
	require.LessOrEqual(t, len(alice.receiving), 2)
	require.LessOrEqual(t, len(bob.receiving), 2)
	require.Len(t, bob.receivingOrder, 2)
}
