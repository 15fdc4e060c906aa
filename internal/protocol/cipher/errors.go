package cipher

import "errors"

// ErrTagMismatch is returned when a message fails authentication.
var ErrTagMismatch = errors.New("cipher: message authentication failed")

// AuthenticationError wraps a failed verification. It carries no detail about
// which part of the message was wrong.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string { return e.Err.Error() }

func (e *AuthenticationError) Unwrap() error { return e.Err }

func errAuth() error { return &AuthenticationError{Err: ErrTagMismatch} }
