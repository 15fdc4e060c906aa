package ratchet

import (
	"crypto/rand"
	"io"
	"time"

	"cipherline/internal/domain"
)

const (
	// DefaultMaxSkip bounds how many message keys one advance may derive.
	DefaultMaxSkip = 1000
	// DefaultMaxSkippedKeys bounds the skipped-key cache across all chains.
	DefaultMaxSkippedKeys = 2000
	// DefaultMaxSkippedKeyAge is how long a skipped key is kept.
	DefaultMaxSkippedKeyAge = 7 * 24 * time.Hour

	// SeenKeysWindow is how many remote ratchet keys a State remembers for
	// ErrStaleKey. Older keys are forgotten.
	SeenKeysWindow = 128
)

// Config holds the resource bounds of a State.
type Config struct {
	MaxSkip          uint32
	MaxSkippedKeys   int
	MaxSkippedKeyAge time.Duration
}

// DefaultConfig returns the bounds used when none are given.
func DefaultConfig() Config {
	return Config{
		MaxSkip:          DefaultMaxSkip,
		MaxSkippedKeys:   DefaultMaxSkippedKeys,
		MaxSkippedKeyAge: DefaultMaxSkippedKeyAge,
	}
}

// Option customises a State.
type Option func(*State)

// WithConfig sets the resource bounds.
func WithConfig(cfg Config) Option {
	return func(s *State) { s.cfg = cfg }
}

// WithRand sets the randomness used for new ratchet key pairs.
func WithRand(r io.Reader) Option {
	return func(s *State) { s.rand = r }
}

// WithClock sets the time source used to age skipped keys.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

func newState(opts []Option) *State {
	s := &State{
		cfg:       DefaultConfig(),
		rand:      rand.Reader,
		now:       time.Now,
		receiving: make(map[domain.X25519Public]*receivingChain),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	s.skipped = NewSkippedKeys(s.cfg.MaxSkippedKeys, s.cfg.MaxSkippedKeyAge)
	return s
}
