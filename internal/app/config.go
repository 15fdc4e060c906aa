package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"cipherline/internal/log"
	"cipherline/internal/protocol/ratchet"
)

const (
	defaultLogLevel              = "NOTICE"
	defaultOneTimeBatch          = 10
	defaultSignedPreKeyRetention = 30 * 24 * time.Hour

	// StorageFile keeps every store in JSON files under Home.
	StorageFile = "file"
	// StorageBolt keeps ratchet state in a bbolt database under Home.
	StorageBolt = "bolt"
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool
	// File specifies the log file, if omitted stderr will be used.
	File string
	// Level specifies the log level.
	Level string
}

func (l *Logging) validate() error {
	if !log.ValidLevel(l.Level) {
		return fmt.Errorf("config: Logging: Level '%v' is invalid", l.Level)
	}
	return nil
}

// Storage selects the persistence backend.
type Storage struct {
	// Backend is "file" (default) or "bolt".
	Backend string
}

// Ratchet holds the Double Ratchet resource bounds.
type Ratchet struct {
	MaxSkip          uint32
	MaxSkippedKeys   int
	MaxSkippedKeyAge time.Duration
}

// Config converts the section to ratchet.Config.
func (r *Ratchet) Config() ratchet.Config {
	return ratchet.Config{
		MaxSkip:          r.MaxSkip,
		MaxSkippedKeys:   r.MaxSkippedKeys,
		MaxSkippedKeyAge: r.MaxSkippedKeyAge,
	}
}

// PreKeys controls pre-key generation and publication.
type PreKeys struct {
	// OneTimeBatch is how many one-time pre-keys register generates.
	OneTimeBatch int
	// SignedPreKeyRetention is how long a superseded signed pre-key is kept.
	SignedPreKeyRetention time.Duration
	// RegistrationID overrides the id derived from the identity key.
	RegistrationID uint32
	DeviceID       uint32
}

// Config is the top level cipherline configuration.
type Config struct {
	// Home is the directory holding keys and state.
	Home string
	// RelayURL is the relay base URL, e.g. http://127.0.0.1:8080.
	RelayURL string

	Logging *Logging
	Storage *Storage
	Ratchet *Ratchet
	PreKeys *PreKeys
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most people should call one of the Load variants
// instead.
func (c *Config) FixupAndValidate() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.Home = filepath.Join(dir, ".cipherline")
	}
	if c.RelayURL != "" {
		u, err := url.Parse(c.RelayURL)
		if err != nil {
			return fmt.Errorf("config: RelayURL '%v' is invalid: %v", c.RelayURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config: RelayURL '%v' must be http or https", c.RelayURL)
		}
		c.RelayURL = strings.TrimRight(c.RelayURL, "/")
	}

	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}

	if c.Storage == nil {
		c.Storage = &Storage{}
	}
	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = StorageFile
	case StorageFile, StorageBolt:
	default:
		return fmt.Errorf("config: Storage: Backend '%v' is invalid", c.Storage.Backend)
	}

	if c.Ratchet == nil {
		c.Ratchet = &Ratchet{}
	}
	def := ratchet.DefaultConfig()
	if c.Ratchet.MaxSkip == 0 {
		c.Ratchet.MaxSkip = def.MaxSkip
	}
	if c.Ratchet.MaxSkippedKeys == 0 {
		c.Ratchet.MaxSkippedKeys = def.MaxSkippedKeys
	}
	if c.Ratchet.MaxSkippedKeyAge == 0 {
		c.Ratchet.MaxSkippedKeyAge = def.MaxSkippedKeyAge
	}
	if c.Ratchet.MaxSkippedKeys < 0 || c.Ratchet.MaxSkippedKeyAge < 0 {
		return errors.New("config: Ratchet: bounds must not be negative")
	}

	if c.PreKeys == nil {
		c.PreKeys = &PreKeys{}
	}
	if c.PreKeys.OneTimeBatch == 0 {
		c.PreKeys.OneTimeBatch = defaultOneTimeBatch
	}
	if c.PreKeys.OneTimeBatch < 0 {
		return fmt.Errorf("config: PreKeys: OneTimeBatch %d is invalid", c.PreKeys.OneTimeBatch)
	}
	if c.PreKeys.SignedPreKeyRetention == 0 {
		c.PreKeys.SignedPreKeyRetention = defaultSignedPreKeyRetention
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
