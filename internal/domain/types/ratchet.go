package types

import (
	"encoding/binary"
	"errors"
)

// RatchetHeaderSize is the encoded length of a RatchetHeader.
const RatchetHeaderSize = 32 + 4 + 4

// ErrHeaderSize is returned when parsing a header of the wrong length.
var ErrHeaderSize = errors.New("types: ratchet header must be 40 bytes")

// RatchetHeader is sent alongside every ciphertext.
type RatchetHeader struct {
	DiffieHellmanPublicKey X25519Public `json:"dh_pub"`
	PreviousChainLength    uint32       `json:"pn"`
	MessageIndex           uint32       `json:"n"`
}

// Bytes encodes the header as pub(32) || PN (uint32 BE) || N (uint32 BE).
func (h RatchetHeader) Bytes() []byte {
	b := make([]byte, RatchetHeaderSize)
	copy(b, h.DiffieHellmanPublicKey[:])
	binary.BigEndian.PutUint32(b[32:36], h.PreviousChainLength)
	binary.BigEndian.PutUint32(b[36:40], h.MessageIndex)
	return b
}

// ParseRatchetHeader decodes the output of RatchetHeader.Bytes.
func ParseRatchetHeader(b []byte) (RatchetHeader, error) {
	var h RatchetHeader
	if len(b) != RatchetHeaderSize {
		return h, ErrHeaderSize
	}
	copy(h.DiffieHellmanPublicKey[:], b[:32])
	h.PreviousChainLength = binary.BigEndian.Uint32(b[32:36])
	h.MessageIndex = binary.BigEndian.Uint32(b[36:40])
	return h, nil
}

// Conversation persists the serialized ratchet state for a peer.
type Conversation struct {
	Peer  ConversationID `json:"peer"`
	State []byte         `json:"state"`
}
