package types

// Session holds the handshake metadata for a peer. The shared secret itself
// lives only inside the ratchet state.
type Session struct {
	PeerUsername       Username       `json:"peer_username"`
	PeerIdentityKey    X25519Public   `json:"peer_identity_key"`
	PeerSigningKey     Ed25519Public  `json:"peer_signing_key"`
	PeerRegistrationID RegistrationID `json:"peer_registration_id"`
	AssociatedData     []byte         `json:"associated_data"`
	CreatedUTC         int64          `json:"created_utc"`

	// HandshakeEphemeral is the initiator ephemeral key of the handshake that
	// created this session. A PreKeyMessage with a different one starts a new
	// session.
	HandshakeEphemeral X25519Public `json:"handshake_ephemeral"`

	// PreviousHandshakes lists the ephemeral keys of handshakes this session
	// replaced, oldest first. A PreKeyMessage carrying one of them is a replay.
	PreviousHandshakes []X25519Public `json:"previous_handshakes,omitempty"`

	// PendingPreKey is attached to outgoing envelopes until the peer's first
	// reply arrives.
	PendingPreKey *PreKeyMessage `json:"pending_pre_key,omitempty"`
}

// MaxPreviousHandshakes bounds Session.PreviousHandshakes.
const MaxPreviousHandshakes = 32

// Supersede records that s replaces prev, carrying prev's handshake history
// forward.
func (s *Session) Supersede(prev Session) {
	hist := make([]X25519Public, 0, len(prev.PreviousHandshakes)+1)
	for _, ek := range prev.PreviousHandshakes {
		if !ek.Equal(s.HandshakeEphemeral) {
			hist = append(hist, ek)
		}
	}
	if !prev.HandshakeEphemeral.IsZero() && !prev.HandshakeEphemeral.Equal(s.HandshakeEphemeral) {
		hist = append(hist, prev.HandshakeEphemeral)
	}
	if n := len(hist) - MaxPreviousHandshakes; n > 0 {
		hist = hist[n:]
	}
	s.PreviousHandshakes = hist
}

// Replaced reports whether ek belongs to a handshake this session replaced.
func (s Session) Replaced(ek X25519Public) bool {
	for _, old := range s.PreviousHandshakes {
		if old.Equal(ek) {
			return true
		}
	}
	return false
}
