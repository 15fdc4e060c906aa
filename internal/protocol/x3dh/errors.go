package x3dh

import "errors"

var (
	// ErrInvalidSignature is returned when the signed pre-key signature does
	// not verify under the bundle's signing key.
	ErrInvalidSignature = errors.New("invalid signed pre-key signature")
	// ErrUnknownPreKeyID is returned when a referenced one-time pre-key is
	// unknown or already consumed.
	ErrUnknownPreKeyID = errors.New("unknown or consumed one-time pre-key")
	// ErrSignedPreKeyMismatch is returned when the message names a different
	// signed pre-key than the one supplied to Respond.
	ErrSignedPreKeyMismatch = errors.New("signed pre-key id mismatch")
	// ErrUnknownSignedPreKey is returned when the message names a signed
	// pre-key that is no longer retained.
	ErrUnknownSignedPreKey = errors.New("unknown signed pre-key")
	// ErrReplayedHandshake is returned when a PreKeyMessage repeats a
	// handshake that an existing session has already replaced.
	ErrReplayedHandshake = errors.New("replayed handshake")
)

// HandshakeError records which handshake step failed.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	return "x3dh: " + e.Op + ": " + e.Err.Error()
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	return &HandshakeError{Op: op, Err: err}
}
