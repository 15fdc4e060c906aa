package ratchet

import (
	"crypto/hmac"
	"crypto/sha256"

	"cipherline/internal/crypto"
)

const rootInfo = "cipherline/ratchet"

var (
	messageKeySeed = []byte{0x01}
	chainKeySeed   = []byte{0x02}
)

// RootKey is the ratchet root, replaced on every Diffie–Hellman step.
type RootKey [32]byte

// ChainKey is the state of a sending or receiving chain.
type ChainKey [32]byte

// MessageKey encrypts exactly one message.
type MessageKey [32]byte

// StepSymmetric advances a chain by one message. The next chain key and the
// message key are derived with distinct HMAC-SHA256 inputs, so neither can be
// computed from the other.
func StepSymmetric(ck ChainKey) (next ChainKey, mk MessageKey) {
	h := hmac.New(sha256.New, ck[:])
	h.Write(chainKeySeed)
	copy(next[:], h.Sum(nil))

	h = hmac.New(sha256.New, ck[:])
	h.Write(messageKeySeed)
	copy(mk[:], h.Sum(nil))
	return next, mk
}

// kdfRK mixes a Diffie–Hellman output into the root and yields a new root and
// a fresh chain key.
func kdfRK(rk RootKey, dh [32]byte) (RootKey, ChainKey, error) {
	var out [64]byte
	defer crypto.Wipe(out[:])
	if err := crypto.HKDF(dh[:], rk[:], []byte(rootInfo), out[:]); err != nil {
		return RootKey{}, ChainKey{}, err
	}
	var root RootKey
	var ck ChainKey
	copy(root[:], out[:32])
	copy(ck[:], out[32:])
	return root, ck, nil
}

type sendingChain struct {
	key   ChainKey
	index uint32
}

type receivingChain struct {
	key  ChainKey
	next uint32
}
