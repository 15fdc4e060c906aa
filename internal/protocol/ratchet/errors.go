package ratchet

import "errors"

var (
	// ErrStaleKey is returned when a header carries a ratchet public key that
	// was already ratcheted past, within the last SeenKeysWindow steps.
	ErrStaleKey = errors.New("stale ratchet key")
	// ErrTooManySkippedMessages is returned when a header would require
	// deriving more than Config.MaxSkip message keys in one advance.
	ErrTooManySkippedMessages = errors.New("too many skipped messages")
	// ErrDuplicateMessage is returned for a message index whose key was already
	// used or has expired from the skipped-key cache.
	ErrDuplicateMessage = errors.New("duplicate or expired message")
	// ErrNotInitialized is returned when an operation needs a chain that does
	// not exist yet.
	ErrNotInitialized = errors.New("ratchet not initialized")
	// ErrUnsupportedVersion is returned by Deserialize for unknown encodings.
	ErrUnsupportedVersion = errors.New("unsupported state version")
)

// RatchetError records the operation that failed.
type RatchetError struct {
	Op  string
	Err error
}

func (e *RatchetError) Error() string {
	return "ratchet: " + e.Op + ": " + e.Err.Error()
}

func (e *RatchetError) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	return &RatchetError{Op: op, Err: err}
}
