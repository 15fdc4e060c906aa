package store

import (
	"path/filepath"
	"sync"

	"cipherline/internal/domain"
)

const bundleFile = "bundle.json"

// BundleFileStore caches the last pre-key registration you uploaded.
type BundleFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewBundleFileStore returns a BundleFileStore rooted at dir.
func NewBundleFileStore(dir string) *BundleFileStore {
	return &BundleFileStore{dir: dir}
}

// SavePreKeyRegistration writes the registration to disk.
func (s *BundleFileStore) SavePreKeyRegistration(reg domain.PreKeyRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(filepath.Join(s.dir, bundleFile), reg, 0o600)
}

// LoadPreKeyRegistration returns the cached registration if it belongs to
// username.
func (s *BundleFileStore) LoadPreKeyRegistration(username domain.Username) (domain.PreKeyRegistration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reg domain.PreKeyRegistration
	if err := readJSON(filepath.Join(s.dir, bundleFile), &reg); err != nil {
		return domain.PreKeyRegistration{}, false, err
	}
	if reg.Bundle.Username == "" || reg.Bundle.Username != username {
		return domain.PreKeyRegistration{}, false, nil
	}
	return reg, true, nil
}

// Compile-time assertion that BundleFileStore implements domain.PreKeyBundleStore.
var _ domain.PreKeyBundleStore = (*BundleFileStore)(nil)
