package app

import (
	"io"
	"os"

	"cipherline/internal/domain"
	"cipherline/internal/store"
)

// stores is the persistence layer selected by Config.Storage.
type stores struct {
	identity domain.IdentityStore
	prekey   domain.PreKeyStore
	bundle   domain.PreKeyBundleStore
	session  domain.SessionStore
	ratchet  domain.RatchetStore
	account  domain.AccountStore
	closers  []io.Closer
}

func openStores(cfg *Config) (*stores, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	s := &stores{
		identity: store.NewIdentityFileStore(cfg.Home),
		prekey:   store.NewPrekeyFileStore(cfg.Home),
		bundle:   store.NewBundleFileStore(cfg.Home),
		session:  store.NewSessionFileStore(cfg.Home),
		account:  store.NewAccountFileStore(cfg.Home),
	}
	switch cfg.Storage.Backend {
	case StorageBolt:
		db, err := store.OpenRatchetBoltStore(cfg.Home)
		if err != nil {
			return nil, err
		}
		s.ratchet = db
		s.closers = append(s.closers, db)
	default:
		s.ratchet = store.NewRatchetFileStore(cfg.Home)
	}
	return s, nil
}

func (s *stores) close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
