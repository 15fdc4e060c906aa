package store

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/x3dh"
)

const (
	spkPairsFile   = "spk_pairs.json"
	opkPairsFile   = "opk_pairs.json"
	prekeyMetaFile = "prekey_meta.json"
)

// ErrUnknownOneTimePreKey is returned when consuming an id that is not stored.
var ErrUnknownOneTimePreKey = errors.New("store: unknown one-time pre-key")

// PrekeyFileStore persists Signed Pre-Key and One-Time Pre-Key state to disk.
// Consumed one-time pre-keys are deleted; the id counters in prekey_meta.json
// guarantee an id is never handed out twice.
type PrekeyFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPrekeyFileStore returns a PrekeyFileStore rooted at dir.
func NewPrekeyFileStore(dir string) *PrekeyFileStore {
	return &PrekeyFileStore{dir: dir}
}

type prekeyMeta struct {
	CurrentSignedPreKeyID domain.SignedPreKeyID  `json:"current_signed_pre_key_id"`
	LastSignedPreKeyID    domain.SignedPreKeyID  `json:"last_signed_pre_key_id"`
	LastOneTimePreKeyID   domain.OneTimePreKeyID `json:"last_one_time_pre_key_id"`
}

func (s *PrekeyFileStore) path(name string) string { return filepath.Join(s.dir, name) }

func (s *PrekeyFileStore) loadSigned() (map[domain.SignedPreKeyID]domain.SignedPreKeyPair, error) {
	m := map[domain.SignedPreKeyID]domain.SignedPreKeyPair{}
	err := readJSON(s.path(spkPairsFile), &m)
	return m, err
}

func (s *PrekeyFileStore) loadOneTime() (map[domain.OneTimePreKeyID]domain.KeyPair, error) {
	m := map[domain.OneTimePreKeyID]domain.KeyPair{}
	err := readJSON(s.path(opkPairsFile), &m)
	return m, err
}

func (s *PrekeyFileStore) loadMeta() (prekeyMeta, error) {
	var meta prekeyMeta
	err := readJSON(s.path(prekeyMetaFile), &meta)
	return meta, err
}

// SaveSignedPreKey stores a signed pre-key by id.
func (s *PrekeyFileStore) SaveSignedPreKey(pair domain.SignedPreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadSigned()
	if err != nil {
		return err
	}
	m[pair.ID] = pair
	return writeJSON(s.path(spkPairsFile), m, 0o600)
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (s *PrekeyFileStore) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadSigned()
	if err != nil {
		return domain.SignedPreKeyPair{}, false, err
	}
	p, ok := m[id]
	return p, ok, nil
}

// ListSignedPreKeys returns all retained signed pre-keys, oldest first.
func (s *PrekeyFileStore) ListSignedPreKeys() ([]domain.SignedPreKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadSigned()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SignedPreKeyPair, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RemoveSignedPreKey deletes a signed pre-key.
func (s *PrekeyFileStore) RemoveSignedPreKey(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadSigned()
	if err != nil {
		return err
	}
	if p, ok := m[id]; ok {
		crypto.Wipe(p.KeyPair.Private[:])
		delete(m, id)
	}
	return writeJSON(s.path(spkPairsFile), m, 0o600)
}

// SetCurrentSignedPreKeyID records which signed pre-key id is current.
func (s *PrekeyFileStore) SetCurrentSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	meta.CurrentSignedPreKeyID = id
	return writeJSON(s.path(prekeyMetaFile), meta, 0o600)
}

// CurrentSignedPreKeyID returns the recorded current signed pre-key id.
func (s *PrekeyFileStore) CurrentSignedPreKeyID() (domain.SignedPreKeyID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return 0, false, err
	}
	if meta.CurrentSignedPreKeyID == 0 {
		return 0, false, nil
	}
	return meta.CurrentSignedPreKeyID, true, nil
}

// NextSignedPreKeyID allocates a fresh signed pre-key id. IDs start at 1.
func (s *PrekeyFileStore) NextSignedPreKeyID() (domain.SignedPreKeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return 0, err
	}
	meta.LastSignedPreKeyID++
	if err := writeJSON(s.path(prekeyMetaFile), meta, 0o600); err != nil {
		return 0, err
	}
	return meta.LastSignedPreKeyID, nil
}

// NextOneTimePreKeyIDs allocates n consecutive one-time pre-key ids.
func (s *PrekeyFileStore) NextOneTimePreKeyIDs(n int) ([]domain.OneTimePreKeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.OneTimePreKeyID, 0, n)
	for i := 0; i < n; i++ {
		meta.LastOneTimePreKeyID++
		ids = append(ids, meta.LastOneTimePreKeyID)
	}
	if err := writeJSON(s.path(prekeyMetaFile), meta, 0o600); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveOneTimePreKeys merges the provided one-time pre-key pairs into the store.
func (s *PrekeyFileStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadOneTime()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		m[p.ID] = p.KeyPair
	}
	return writeJSON(s.path(opkPairsFile), m, 0o600)
}

// LookupOneTimePreKey returns an unconsumed one-time pre-key.
func (s *PrekeyFileStore) LookupOneTimePreKey(id domain.OneTimePreKeyID) (domain.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadOneTime()
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	kp, ok := m[id]
	return kp, ok, nil
}

// MarkOneTimePreKeyConsumed deletes a one-time pre-key so it can never be
// used again.
func (s *PrekeyFileStore) MarkOneTimePreKeyConsumed(id domain.OneTimePreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadOneTime()
	if err != nil {
		return err
	}
	if _, ok := m[id]; !ok {
		return ErrUnknownOneTimePreKey
	}
	delete(m, id)
	return writeJSON(s.path(opkPairsFile), m, 0o600)
}

// ListOneTimePreKeyPublics exposes only the public halves of unconsumed keys,
// ordered by id.
func (s *PrekeyFileStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadOneTime()
	if err != nil {
		return nil, err
	}
	out := make([]domain.OneTimePreKeyPublic, 0, len(m))
	for id, kp := range m {
		out = append(out, domain.OneTimePreKeyPublic{ID: id, Pub: kp.Public})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Compile-time assertions that PrekeyFileStore implements domain.PreKeyStore
// and serves as the X3DH one-time pre-key source.
var (
	_ domain.PreKeyStore       = (*PrekeyFileStore)(nil)
	_ x3dh.OneTimePreKeySource = (*PrekeyFileStore)(nil)
)
