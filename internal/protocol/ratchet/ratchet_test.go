package ratchet_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/cipher"
	"cipherline/internal/protocol/ratchet"
)

var testAD = []byte("alice-identity||bob-identity")

type sealedMessage struct {
	header domain.RatchetHeader
	ct     []byte
}

// newPair returns an initiator and a responder sharing a random secret.
func newPair(t *testing.T, opts ...ratchet.Option) (alice, bob *ratchet.State) {
	t.Helper()
	var sk [32]byte
	_, err := rand.Read(sk[:])
	require.NoError(t, err)
	spk, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)

	alice, err = ratchet.InitAsInitiator(rand.Reader, sk, spk.Public, opts...)
	require.NoError(t, err)
	bob, err = ratchet.InitAsResponder(sk, spk, opts...)
	require.NoError(t, err)
	return alice, bob
}

func send(t *testing.T, s *ratchet.State, msg string) sealedMessage {
	t.Helper()
	h, ct, err := s.Encrypt(testAD, []byte(msg))
	require.NoError(t, err)
	return sealedMessage{header: h, ct: ct}
}

func recv(t *testing.T, s *ratchet.State, m sealedMessage) string {
	t.Helper()
	pt, err := s.Decrypt(m.header, m.ct, testAD)
	require.NoError(t, err)
	return string(pt)
}

func TestConversation(t *testing.T) {
	alice, bob := newPair(t)
	require.Equal(t, ratchet.PhaseInitialized, alice.Phase())
	require.Equal(t, ratchet.PhaseInitialized, bob.Phase())

	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf("hello %d", i)
		require.Equal(t, msg, recv(t, bob, send(t, alice, msg)))
	}
	require.Equal(t, ratchet.PhaseActive, alice.Phase())
	require.Equal(t, ratchet.PhaseActive, bob.Phase())

	reply := send(t, bob, "hi alice")
	require.NotEqual(t, alice.RatchetPublicKey(), reply.header.DiffieHellmanPublicKey)
	require.Equal(t, "hi alice", recv(t, alice, reply))
	require.Equal(t, ratchet.PhaseActive, alice.Phase())

	// Several turns so both sides ratchet repeatedly.
	for i := 0; i < 5; i++ {
		require.Equal(t, "ping", recv(t, bob, send(t, alice, "ping")))
		require.Equal(t, "pong", recv(t, alice, send(t, bob, "pong")))
	}
}

func TestResponderCannotSendFirst(t *testing.T) {
	_, bob := newPair(t)
	_, _, err := bob.Encrypt(testAD, []byte("too early"))
	require.ErrorIs(t, err, ratchet.ErrNotInitialized)

	var re *ratchet.RatchetError
	require.True(t, errors.As(err, &re))
}

func TestUninitializedState(t *testing.T) {
	var s ratchet.State
	require.Equal(t, ratchet.PhaseUninitialized, s.Phase())
	_, err := s.AdvanceReceiving(domain.RatchetHeader{})
	require.ErrorIs(t, err, ratchet.ErrNotInitialized)
	_, _, err = s.AdvanceSending(1)
	require.ErrorIs(t, err, ratchet.ErrNotInitialized)
}

func TestStepSymmetric(t *testing.T) {
	var ck ratchet.ChainKey
	copy(ck[:], bytes.Repeat([]byte{0x42}, 32))

	next1, mk1 := ratchet.StepSymmetric(ck)
	next2, mk2 := ratchet.StepSymmetric(ck)
	require.Equal(t, next1, next2)
	require.Equal(t, mk1, mk2)

	require.NotEqual(t, ck, next1)
	require.NotEqual(t, [32]byte(next1), [32]byte(mk1))
	require.NotEqual(t, [32]byte(ck), [32]byte(mk1))

	next3, _ := ratchet.StepSymmetric(next1)
	require.NotEqual(t, next1, next3)
}

func TestSendingIndexIncreases(t *testing.T) {
	alice, _ := newPair(t)
	for i := uint32(0); i < 10; i++ {
		m := send(t, alice, "x")
		require.Equal(t, i, m.header.MessageIndex)
		require.Equal(t, uint32(0), m.header.PreviousChainLength)
	}

	_, idx, err := alice.AdvanceSending(5)
	require.NoError(t, err)
	require.Equal(t, uint32(14), idx)
	require.Equal(t, uint32(15), send(t, alice, "x").header.MessageIndex)
}

func TestOutOfOrder(t *testing.T) {
	alice, bob := newPair(t)
	msgs := make([]sealedMessage, 6)
	for i := range msgs {
		msgs[i] = send(t, alice, fmt.Sprintf("m%d", i))
	}

	for _, i := range []int{3, 0, 1, 5, 2, 4} {
		require.Equal(t, fmt.Sprintf("m%d", i), recv(t, bob, msgs[i]))
	}
	require.Equal(t, 0, bob.SkippedKeys())
}

func TestOutOfOrderAcrossRatchetSteps(t *testing.T) {
	alice, bob := newPair(t)
	a0 := send(t, alice, "a0")
	a1 := send(t, alice, "a1")
	require.Equal(t, "a1", recv(t, bob, a1))

	require.Equal(t, "b0", recv(t, alice, send(t, bob, "b0")))

	a2 := send(t, alice, "a2")
	require.Equal(t, uint32(2), a2.header.PreviousChainLength)
	require.Equal(t, uint32(0), a2.header.MessageIndex)
	require.Equal(t, "a2", recv(t, bob, a2))

	// a0 belongs to the prior chain and is served from the skipped-key cache.
	require.Equal(t, "a0", recv(t, bob, a0))
	require.Equal(t, 0, bob.SkippedKeys())
}

func TestLostMessagesCachedOnDHStep(t *testing.T) {
	alice, bob := newPair(t)
	require.Equal(t, "a0", recv(t, bob, send(t, alice, "a0")))
	a1 := send(t, alice, "a1")
	a2 := send(t, alice, "a2")

	require.Equal(t, "b0", recv(t, alice, send(t, bob, "b0")))
	// Bob learns of a1 and a2 only through the PN of Alice's next chain.
	require.Equal(t, "a3", recv(t, bob, send(t, alice, "a3")))
	require.Equal(t, 2, bob.SkippedKeys())

	require.Equal(t, "a2", recv(t, bob, a2))
	require.Equal(t, "a1", recv(t, bob, a1))
}

func TestDuplicateRejected(t *testing.T) {
	alice, bob := newPair(t)
	m := send(t, alice, "once")
	require.Equal(t, "once", recv(t, bob, m))

	_, err := bob.Decrypt(m.header, m.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrDuplicateMessage)

	require.Equal(t, "next", recv(t, bob, send(t, alice, "next")))
}

func TestSkipBound(t *testing.T) {
	alice, bob := newPair(t)

	_, _, err := alice.AdvanceSending(2000)
	require.NoError(t, err)
	far := send(t, alice, "far")
	require.Equal(t, uint32(2000), far.header.MessageIndex)

	_, err = bob.Decrypt(far.header, far.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrTooManySkippedMessages)
	require.Equal(t, ratchet.PhaseInitialized, bob.Phase())
	require.Equal(t, 0, bob.SkippedKeys())
}

func TestSkipBoundOnExistingChain(t *testing.T) {
	alice, bob := newPair(t)
	require.Equal(t, "m0", recv(t, bob, send(t, alice, "m0")))

	_, _, err := alice.AdvanceSending(1001)
	require.NoError(t, err)
	over := send(t, alice, "over")
	require.Equal(t, uint32(1002), over.header.MessageIndex)
	_, err = bob.Decrypt(over.header, over.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrTooManySkippedMessages)

	// The session is still usable for messages within the bound.
	alice2, bob2 := newPair(t)
	require.Equal(t, "m0", recv(t, bob2, send(t, alice2, "m0")))
	_, _, err = alice2.AdvanceSending(1000)
	require.NoError(t, err)
	within := send(t, alice2, "within")
	require.Equal(t, "within", recv(t, bob2, within))
	require.Equal(t, 1000, bob2.SkippedKeys())
}

func TestSkippedKeyCacheEvictsOldest(t *testing.T) {
	cfg := ratchet.Config{MaxSkip: 10, MaxSkippedKeys: 4}
	alice, bob := newPair(t, ratchet.WithConfig(cfg))

	msgs := make([]sealedMessage, 7)
	for i := range msgs {
		msgs[i] = send(t, alice, fmt.Sprintf("m%d", i))
	}
	require.Equal(t, "m6", recv(t, bob, msgs[6]))
	require.Equal(t, 4, bob.SkippedKeys())

	// m0 and m1 were evicted.
	_, err := bob.Decrypt(msgs[0].header, msgs[0].ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrDuplicateMessage)
	require.Equal(t, "m2", recv(t, bob, msgs[2]))
}

func TestSkippedKeysExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	cfg := ratchet.Config{MaxSkip: 10, MaxSkippedKeys: 10, MaxSkippedKeyAge: time.Hour}
	alice, bob := newPair(t, ratchet.WithConfig(cfg), ratchet.WithClock(clock))

	m0 := send(t, alice, "m0")
	m1 := send(t, alice, "m1")
	require.Equal(t, "m1", recv(t, bob, m1))
	require.Equal(t, 1, bob.SkippedKeys())

	now = now.Add(2 * time.Hour)
	_, err := bob.Decrypt(m0.header, m0.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrDuplicateMessage)

	// The expired entry is pruned by the next successful advance.
	require.Equal(t, "m2", recv(t, bob, send(t, alice, "m2")))
	require.Equal(t, 0, bob.SkippedKeys())
}

func TestStaleKeyRejected(t *testing.T) {
	alice, bob := newPair(t)
	a0 := send(t, alice, "a0")
	require.Equal(t, "a0", recv(t, bob, a0))
	require.Equal(t, "b0", recv(t, alice, send(t, bob, "b0")))

	err := bob.StepDiffieHellman(a0.header.DiffieHellmanPublicKey)
	require.ErrorIs(t, err, ratchet.ErrStaleKey)

	for i := 0; i < 3; i++ {
		require.Equal(t, "ping", recv(t, bob, send(t, alice, "ping")))
		require.Equal(t, "pong", recv(t, alice, send(t, bob, "pong")))
	}
	// The first chain has been dropped; a header on it is stale.
	h := a0.header
	h.MessageIndex = 5
	_, err = bob.Decrypt(h, a0.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrStaleKey)
}

func TestStaleKeyWindow(t *testing.T) {
	_, bob := newPair(t)

	keys := make([]domain.X25519Public, ratchet.SeenKeysWindow+1)
	for i := range keys {
		kp, err := crypto.GenerateKeyPair(nil)
		require.NoError(t, err)
		keys[i] = kp.Public
		require.NoError(t, bob.StepDiffieHellman(keys[i]))
	}

	// The newest and the oldest key still inside the window are refused.
	require.ErrorIs(t, bob.StepDiffieHellman(keys[len(keys)-1]), ratchet.ErrStaleKey)
	require.ErrorIs(t, bob.StepDiffieHellman(keys[1]), ratchet.ErrStaleKey)

	// The window survives a restore.
	raw, err := bob.Serialize()
	require.NoError(t, err)
	restored, err := ratchet.Deserialize(raw)
	require.NoError(t, err)
	require.ErrorIs(t, restored.StepDiffieHellman(keys[1]), ratchet.ErrStaleKey)

	// keys[0] has fallen out of the window and is no longer recognised.
	require.NoError(t, bob.StepDiffieHellman(keys[0]))
}

func TestTamperingRejected(t *testing.T) {
	alice, bob := newPair(t)
	m := send(t, alice, "attack at dawn")

	for i := range m.ct {
		ct := bytes.Clone(m.ct)
		ct[i] ^= 0x01
		pt, err := bob.Decrypt(m.header, ct, testAD)
		require.Nil(t, pt)
		require.ErrorIs(t, err, cipher.ErrTagMismatch, "ciphertext byte %d", i)
	}

	hb := m.header.Bytes()
	for i := range hb {
		mod := bytes.Clone(hb)
		mod[i] ^= 0x01
		h, err := domain.ParseRatchetHeader(mod)
		require.NoError(t, err)
		pt, err := bob.Decrypt(h, m.ct, testAD)
		require.Nil(t, pt)
		require.Error(t, err, "header byte %d", i)
		if i < 32+4 || i == domain.RatchetHeaderSize-1 {
			require.ErrorIs(t, err, cipher.ErrTagMismatch, "header byte %d", i)
		}
	}

	// Failed attempts did not touch the session.
	require.Equal(t, ratchet.PhaseInitialized, bob.Phase())
	require.Equal(t, "attack at dawn", recv(t, bob, m))
}

func TestHeaderIndexLoweredToConsumedIsDuplicate(t *testing.T) {
	alice, bob := newPair(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, fmt.Sprint(i), recv(t, bob, send(t, alice, fmt.Sprint(i))))
	}
	m := send(t, alice, "2")
	require.Equal(t, uint32(2), m.header.MessageIndex)

	// Clearing a bit of N points the header at index 0, whose key is spent.
	h := m.header
	h.MessageIndex ^= 0x02
	_, err := bob.Decrypt(h, m.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrDuplicateMessage)

	require.Equal(t, "2", recv(t, bob, m))
}

func TestFailedDecryptKeepsState(t *testing.T) {
	alice, bob := newPair(t)
	require.Equal(t, "a0", recv(t, bob, send(t, alice, "a0")))
	m := send(t, alice, "a1")

	before, err := bob.Serialize()
	require.NoError(t, err)
	before = bytes.Clone(before)

	bad := bytes.Clone(m.ct)
	bad[len(bad)-1] ^= 0xff
	_, err = bob.Decrypt(m.header, bad, testAD)
	require.ErrorIs(t, err, cipher.ErrTagMismatch)

	after, err := bob.Serialize()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, "a1", recv(t, bob, m))
}

func TestSerializeRoundTrip(t *testing.T) {
	alice, bob := newPair(t)
	pending := send(t, alice, "a0")
	require.Equal(t, "a1", recv(t, bob, send(t, alice, "a1")))
	require.Equal(t, "b0", recv(t, alice, send(t, bob, "b0")))

	aBytes, err := alice.Serialize()
	require.NoError(t, err)
	bBytes, err := bob.Serialize()
	require.NoError(t, err)

	again, err := bob.Serialize()
	require.NoError(t, err)
	require.Equal(t, bBytes, again)

	alice2, err := ratchet.Deserialize(bytes.Clone(aBytes))
	require.NoError(t, err)
	bob2, err := ratchet.Deserialize(bytes.Clone(bBytes))
	require.NoError(t, err)

	reencoded, err := bob2.Serialize()
	require.NoError(t, err)
	require.Equal(t, bBytes, reencoded)
	require.Equal(t, bob.Phase(), bob2.Phase())
	require.Equal(t, bob.SkippedKeys(), bob2.SkippedKeys())

	for i := 0; i < 10; i++ {
		msg := fmt.Sprintf("after restore %d", i)
		if i%3 == 2 {
			require.Equal(t, msg, recv(t, alice2, send(t, bob2, msg)))
			continue
		}
		require.Equal(t, msg, recv(t, bob2, send(t, alice2, msg)))
	}
	require.Equal(t, "a0", recv(t, bob2, pending))
}

func TestDeserializeLeavesInputIntact(t *testing.T) {
	alice, bob := newPair(t)
	require.Equal(t, "a0", recv(t, bob, send(t, alice, "a0")))

	raw, err := bob.Serialize()
	require.NoError(t, err)
	want := bytes.Clone(raw)

	restored, err := ratchet.Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, want, raw)

	// The same bytes restore a second, equivalent state.
	again, err := ratchet.Deserialize(raw)
	require.NoError(t, err)
	m := send(t, alice, "a1")
	require.Equal(t, "a1", recv(t, restored, m))
	require.Equal(t, "a1", recv(t, again, m))
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := ratchet.Deserialize([]byte{0xff, 0x00, 0x13})
	require.Error(t, err)
}

func TestWipe(t *testing.T) {
	alice, _ := newPair(t)
	alice.Wipe()
	require.Equal(t, ratchet.PhaseUninitialized, alice.Phase())
	_, _, err := alice.Encrypt(testAD, []byte("after wipe"))
	require.ErrorIs(t, err, ratchet.ErrNotInitialized)
}
