package ratchet

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

const stateVersion = 1

type cborChain struct {
	Remote domain.X25519Public `cbor:"1,keyasint"`
	Key    ChainKey            `cbor:"2,keyasint"`
	Next   uint32              `cbor:"3,keyasint"`
}

type cborSkippedKey struct {
	Remote       domain.X25519Public `cbor:"1,keyasint"`
	Index        uint32              `cbor:"2,keyasint"`
	Key          MessageKey          `cbor:"3,keyasint"`
	CreationTime int64               `cbor:"4,keyasint"`
}

type cborState struct {
	Version         int                   `cbor:"1,keyasint"`
	Phase           Phase                 `cbor:"2,keyasint"`
	Root            RootKey               `cbor:"3,keyasint"`
	RatchetKey      domain.KeyPair        `cbor:"4,keyasint"`
	HasSending      bool                  `cbor:"5,keyasint"`
	SendingKey      ChainKey              `cbor:"6,keyasint"`
	SendingIndex    uint32                `cbor:"7,keyasint"`
	Remote          domain.X25519Public   `cbor:"8,keyasint"`
	Receiving       []cborChain           `cbor:"9,keyasint"`
	Seen            []domain.X25519Public `cbor:"10,keyasint"`
	PreviousCounter uint32                `cbor:"11,keyasint"`
	Skipped         []cborSkippedKey      `cbor:"12,keyasint"`
}

func (c *cborState) wipe() {
	crypto.Wipe(c.Root[:])
	crypto.Wipe(c.RatchetKey.Private[:])
	crypto.Wipe(c.SendingKey[:])
	for i := range c.Receiving {
		crypto.Wipe(c.Receiving[i].Key[:])
	}
	for i := range c.Skipped {
		crypto.Wipe(c.Skipped[i].Key[:])
	}
}

var encMode = func() cbor.EncMode {
	m, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Serialize encodes the complete state, including cached skipped keys.
// Configuration, randomness and clock are not part of the encoding.
func (s *State) Serialize() ([]byte, error) {
	tmp := cborState{
		Version:         stateVersion,
		Phase:           s.phase,
		Root:            s.root,
		RatchetKey:      s.ratchetKey,
		Remote:          s.remote,
		Seen:            s.seen,
		PreviousCounter: s.previousCounter,
	}
	defer tmp.wipe()
	if s.sending != nil {
		tmp.HasSending = true
		tmp.SendingKey = s.sending.key
		tmp.SendingIndex = s.sending.index
	}
	for _, k := range s.receivingOrder {
		if c, ok := s.receiving[k]; ok {
			tmp.Receiving = append(tmp.Receiving, cborChain{Remote: k, Key: c.key, Next: c.next})
		}
	}
	s.skipped.each(func(e *skippedEntry) {
		tmp.Skipped = append(tmp.Skipped, cborSkippedKey{
			Remote:       e.id.remote,
			Index:        e.id.index,
			Key:          e.key,
			CreationTime: e.created.UnixNano(),
		})
	})
	b, err := encMode.Marshal(&tmp)
	if err != nil {
		return nil, opError("serialize", err)
	}
	return b, nil
}

// Deserialize restores a state produced by Serialize. data is left untouched;
// it holds key material, so callers should wipe it once done.
func Deserialize(data []byte, opts ...Option) (*State, error) {
	const op = "deserialize"

	var tmp cborState
	defer tmp.wipe()
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return nil, opError(op, err)
	}
	if tmp.Version != stateVersion {
		return nil, opError(op, ErrUnsupportedVersion)
	}

	s := newState(opts)
	s.phase = tmp.Phase
	s.root = tmp.Root
	s.ratchetKey = tmp.RatchetKey
	s.remote = tmp.Remote
	s.seen = append(s.seen, tmp.Seen...)
	s.previousCounter = tmp.PreviousCounter
	if tmp.HasSending {
		s.sending = &sendingChain{key: tmp.SendingKey, index: tmp.SendingIndex}
	}
	for _, c := range tmp.Receiving {
		s.addReceiving(c.Remote, &receivingChain{key: c.Key, next: c.Next})
	}
	for _, k := range tmp.Skipped {
		s.skipped.Put(k.Remote, k.Index, k.Key, time.Unix(0, k.CreationTime))
	}
	return s, nil
}
