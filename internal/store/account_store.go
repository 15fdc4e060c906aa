package store

import (
	"path/filepath"
	"strings"
	"sync"

	"cipherline/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore keeps one account profile per relay in accounts.json,
// keyed by the relay base URL.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

// SaveAccountProfile records profile as the account for its relay,
// replacing any earlier registration there.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.ServerURL = relayKey(profile.ServerURL)
	accounts, err := s.read()
	if err != nil {
		return err
	}
	accounts[profile.ServerURL] = profile
	return writeJSON(s.path(), accounts, 0o600)
}

// LoadAccountProfile returns the account registered with serverURL.
func (s *AccountFileStore) LoadAccountProfile(serverURL string) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.read()
	if err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := accounts[relayKey(serverURL)]
	return profile, ok, nil
}

func (s *AccountFileStore) path() string { return filepath.Join(s.dir, accountsFile) }

func (s *AccountFileStore) read() (map[string]domain.AccountProfile, error) {
	accounts := make(map[string]domain.AccountProfile)
	if err := readJSON(s.path(), &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// relayKey folds the spellings of a relay URL that reach the same server.
func relayKey(serverURL string) string {
	return strings.TrimRight(serverURL, "/")
}

var _ domain.AccountStore = (*AccountFileStore)(nil)
