package ratchet

import (
	"io"
	"time"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/cipher"
)

// Phase reports how far a State has progressed.
type Phase int

const (
	// PhaseUninitialized is the zero State or a wiped one.
	PhaseUninitialized Phase = iota
	// PhaseInitialized is a State created from a handshake that has not yet
	// sent or received a message.
	PhaseInitialized
	// PhaseActive is a State that has sent or received at least one message.
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	case PhaseActive:
		return "active"
	}
	return "unknown"
}

// State is the Double Ratchet state of one conversation.
type State struct {
	cfg  Config
	rand io.Reader
	now  func() time.Time

	phase Phase
	root  RootKey

	ratchetKey domain.KeyPair
	sending    *sendingChain

	remote         domain.X25519Public
	receiving      map[domain.X25519Public]*receivingChain
	receivingOrder []domain.X25519Public
	seen           []domain.X25519Public

	previousCounter uint32
	skipped         *SkippedKeys
}

// InitAsInitiator creates the initiator's state from the X3DH shared secret and
// the responder's signed pre-key, which serves as the first remote ratchet key.
// The sending chain is ready immediately.
func InitAsInitiator(rand io.Reader, sharedSecret [32]byte, remoteSignedPreKey domain.X25519Public, opts ...Option) (*State, error) {
	if rand != nil {
		opts = append(opts, WithRand(rand))
	}
	s := newState(opts)

	pair, err := crypto.GenerateKeyPair(s.rand)
	if err != nil {
		return nil, opError("init", err)
	}
	dh, err := crypto.DH(pair.Private, remoteSignedPreKey)
	if err != nil {
		crypto.Wipe(pair.Private[:])
		return nil, opError("init", err)
	}
	defer crypto.Wipe(dh[:])

	root, ck, err := kdfRK(RootKey(sharedSecret), dh)
	if err != nil {
		return nil, opError("init", err)
	}
	s.root = root
	s.ratchetKey = pair
	s.sending = &sendingChain{key: ck}
	s.remote = remoteSignedPreKey
	s.markSeen(remoteSignedPreKey)
	s.phase = PhaseInitialized
	return s, nil
}

// InitAsResponder creates the responder's state. The signed pre-key pair is
// the first local ratchet key; the sending chain is derived when the
// initiator's first message arrives.
func InitAsResponder(sharedSecret [32]byte, signedPreKey domain.KeyPair, opts ...Option) (*State, error) {
	s := newState(opts)
	s.root = RootKey(sharedSecret)
	s.ratchetKey = signedPreKey
	s.phase = PhaseInitialized
	return s, nil
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase { return s.phase }

// RatchetPublicKey is the local ratchet public key carried in outgoing headers.
func (s *State) RatchetPublicKey() domain.X25519Public { return s.ratchetKey.Public }

// SkippedKeys returns the number of cached skipped message keys.
func (s *State) SkippedKeys() int { return s.skipped.Len() }

// StepDiffieHellman performs a Diffie–Hellman ratchet step towards remote: a
// receiving chain for remote, then a fresh local ratchet pair and a new
// sending chain. The previous sending chain key is wiped.
//
// Stepping towards any of the last SeenKeysWindow remote keys fails with
// ErrStaleKey. A key older than that window is not recognised, so callers
// stepping directly must not feed it keys that were not freshly received.
// Decrypt only steps after the message authenticates.
func (s *State) StepDiffieHellman(remote domain.X25519Public) error {
	const op = "dh step"
	if s.phase == PhaseUninitialized {
		return opError(op, ErrNotInitialized)
	}
	if s.wasSeen(remote) {
		return opError(op, ErrStaleKey)
	}

	dh, err := crypto.DH(s.ratchetKey.Private, remote)
	if err != nil {
		return opError(op, err)
	}
	root, recvKey, err := kdfRK(s.root, dh)
	crypto.Wipe(dh[:])
	if err != nil {
		return opError(op, err)
	}

	pair, err := crypto.GenerateKeyPair(s.rand)
	if err != nil {
		return opError(op, err)
	}
	dh, err = crypto.DH(pair.Private, remote)
	if err != nil {
		crypto.Wipe(pair.Private[:])
		return opError(op, err)
	}
	root, sendKey, err := kdfRK(root, dh)
	crypto.Wipe(dh[:])
	if err != nil {
		crypto.Wipe(pair.Private[:])
		return opError(op, err)
	}

	s.previousCounter = 0
	if s.sending != nil {
		s.previousCounter = s.sending.index
		crypto.Wipe(s.sending.key[:])
	}
	crypto.Wipe(s.ratchetKey.Private[:])
	crypto.Wipe(s.root[:])

	s.root = root
	s.ratchetKey = pair
	s.sending = &sendingChain{key: sendKey}
	s.addReceiving(remote, &receivingChain{key: recvKey})
	s.remote = remote
	s.markSeen(remote)
	return nil
}

// AdvanceSending steps the sending chain count times and returns the last
// message key with its index. Intermediate keys are discarded.
func (s *State) AdvanceSending(count uint32) (MessageKey, uint32, error) {
	const op = "advance sending"
	if s.phase == PhaseUninitialized || s.sending == nil {
		return MessageKey{}, 0, opError(op, ErrNotInitialized)
	}
	if count == 0 {
		count = 1
	}
	var mk MessageKey
	var index uint32
	for i := uint32(0); i < count; i++ {
		crypto.Wipe(mk[:])
		next, k := StepSymmetric(s.sending.key)
		crypto.Wipe(s.sending.key[:])
		s.sending.key = next
		mk, index = k, s.sending.index
		s.sending.index++
	}
	s.phase = PhaseActive
	return mk, index, nil
}

// AdvanceReceiving returns the message key for header, performing a
// Diffie–Hellman step if header carries a new remote ratchet key and caching
// the keys of any messages skipped on the way.
func (s *State) AdvanceReceiving(header domain.RatchetHeader) (MessageKey, error) {
	const op = "advance receiving"
	if s.phase == PhaseUninitialized {
		return MessageKey{}, opError(op, ErrNotInitialized)
	}
	now := s.now()
	s.skipped.Prune(now)

	remote := header.DiffieHellmanPublicKey
	if mk, ok := s.skipped.Take(remote, header.MessageIndex, now); ok {
		return mk, nil
	}

	chain, ok := s.receiving[remote]
	if !ok {
		if s.wasSeen(remote) {
			return MessageKey{}, opError(op, ErrStaleKey)
		}
		if header.MessageIndex > s.cfg.MaxSkip {
			return MessageKey{}, opError(op, ErrTooManySkippedMessages)
		}
		if cur, ok := s.receiving[s.remote]; ok {
			if err := s.skipTo(s.remote, cur, header.PreviousChainLength, now); err != nil {
				return MessageKey{}, opError(op, err)
			}
		}
		if err := s.StepDiffieHellman(remote); err != nil {
			return MessageKey{}, err
		}
		chain = s.receiving[remote]
	}

	if header.MessageIndex < chain.next {
		return MessageKey{}, opError(op, ErrDuplicateMessage)
	}
	if err := s.skipTo(remote, chain, header.MessageIndex, now); err != nil {
		return MessageKey{}, opError(op, err)
	}
	next, mk := StepSymmetric(chain.key)
	crypto.Wipe(chain.key[:])
	chain.key = next
	chain.next++
	s.phase = PhaseActive
	return mk, nil
}

// Encrypt seals plaintext with the next sending message key.
func (s *State) Encrypt(ad, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	mk, index, err := s.AdvanceSending(1)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	defer crypto.Wipe(mk[:])

	h := domain.RatchetHeader{
		DiffieHellmanPublicKey: s.ratchetKey.Public,
		PreviousChainLength:    s.previousCounter,
		MessageIndex:           index,
	}
	ct, err := cipher.Seal(mk, h, ad, plaintext)
	if err != nil {
		return domain.RatchetHeader{}, nil, opError("encrypt", err)
	}
	return h, ct, nil
}

// Decrypt opens a message. The state only changes if the message
// authenticates; on any error it is left as before the call.
func (s *State) Decrypt(header domain.RatchetHeader, ciphertext, ad []byte) ([]byte, error) {
	work := s.clone()
	mk, err := work.AdvanceReceiving(header)
	if err != nil {
		work.Wipe()
		return nil, err
	}
	pt, err := cipher.Open(mk, header, ad, ciphertext)
	crypto.Wipe(mk[:])
	if err != nil {
		work.Wipe()
		return nil, err
	}
	s.Wipe()
	*s = *work
	return pt, nil
}

// Wipe zeroes every key held by the state and returns it to
// PhaseUninitialized.
func (s *State) Wipe() {
	crypto.Wipe(s.root[:])
	crypto.Wipe(s.ratchetKey.Private[:])
	if s.sending != nil {
		crypto.Wipe(s.sending.key[:])
	}
	for _, c := range s.receiving {
		crypto.Wipe(c.key[:])
	}
	if s.skipped != nil {
		s.skipped.Wipe()
	}
	s.phase = PhaseUninitialized
}

// skipTo caches message keys of chain up to, not including, until.
func (s *State) skipTo(remote domain.X25519Public, chain *receivingChain, until uint32, now time.Time) error {
	if until <= chain.next {
		return nil
	}
	if until-chain.next > s.cfg.MaxSkip {
		return ErrTooManySkippedMessages
	}
	for chain.next < until {
		next, mk := StepSymmetric(chain.key)
		crypto.Wipe(chain.key[:])
		chain.key = next
		s.skipped.Put(remote, chain.next, mk, now)
		chain.next++
	}
	return nil
}

// addReceiving keeps only the new chain and the one before it.
func (s *State) addReceiving(remote domain.X25519Public, c *receivingChain) {
	s.receiving[remote] = c
	s.receivingOrder = append(s.receivingOrder, remote)
	for len(s.receivingOrder) > 2 {
		old := s.receivingOrder[0]
		s.receivingOrder = s.receivingOrder[1:]
		if oc, ok := s.receiving[old]; ok {
			crypto.Wipe(oc.key[:])
			delete(s.receiving, old)
		}
	}
}

func (s *State) wasSeen(k domain.X25519Public) bool {
	for _, v := range s.seen {
		if v == k {
			return true
		}
	}
	return false
}

func (s *State) markSeen(k domain.X25519Public) {
	s.seen = append(s.seen, k)
	if len(s.seen) > SeenKeysWindow {
		s.seen = s.seen[len(s.seen)-SeenKeysWindow:]
	}
}

func (s *State) clone() *State {
	c := *s
	if s.sending != nil {
		sc := *s.sending
		c.sending = &sc
	}
	c.receiving = make(map[domain.X25519Public]*receivingChain, len(s.receiving))
	for k, v := range s.receiving {
		rc := *v
		c.receiving[k] = &rc
	}
	c.receivingOrder = append([]domain.X25519Public(nil), s.receivingOrder...)
	c.seen = append([]domain.X25519Public(nil), s.seen...)
	c.skipped = s.skipped.clone()
	return &c
}
