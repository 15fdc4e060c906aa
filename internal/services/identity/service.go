package identity

import (
	"errors"
	"fmt"
	"io"
	"unicode"

	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/store"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrIdentityExists is returned by GenerateIdentity when one is already stored.
	ErrIdentityExists = errors.New("identity already exists")
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store domain.IdentityStore
	rand  io.Reader
	log   *logging.Logger
}

// New returns an identity service backed by the given store. A nil rand uses
// crypto/rand.
func New(s domain.IdentityStore, rand io.Reader, log *logging.Logger) *Service {
	return &Service{store: s, rand: rand, log: log}
}

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus its fingerprint.
func (s *Service) GenerateIdentity(
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	switch _, err := s.store.LoadIdentity(passphrase); {
	case err == nil, errors.Is(err, store.ErrWrongPassphrase):
		return domain.Identity{}, "", ErrIdentityExists
	case !errors.Is(err, store.ErrNoIdentity):
		return domain.Identity{}, "", err
	}

	id, err := crypto.NewIdentity(s.rand)
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	fp := crypto.IdentityFingerprint(id)
	s.log.Noticef("Generated identity %s", fp)
	return id, fp, nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the local identity.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.IdentityFingerprint(id), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
