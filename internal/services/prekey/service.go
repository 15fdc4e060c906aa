package prekey

import (
	"errors"
	"io"
	"time"

	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

// ErrNoSignedPreKey is returned when no signed pre-key has been generated yet.
var ErrNoSignedPreKey = errors.New("no signed pre-key available; generate pre-keys first")

// Config carries the published identifiers and the retention policy.
type Config struct {
	// RegistrationID is published in bundles. Zero derives one from the
	// identity key.
	RegistrationID domain.RegistrationID
	DeviceID       domain.DeviceID
	// SignedPreKeyRetention is how long a superseded signed pre-key is kept
	// for handshakes still in flight.
	SignedPreKeyRetention time.Duration
}

// Service manages pre-key pairs and builds the public registration.
type Service struct {
	ids domain.IdentityStore
	ps  domain.PreKeyStore
	bs  domain.PreKeyBundleStore
	cfg Config

	rand io.Reader
	now  func() time.Time
	log  *logging.Logger
}

// New returns a pre-key service. A nil rand uses crypto/rand.
func New(
	ids domain.IdentityStore,
	ps domain.PreKeyStore,
	bs domain.PreKeyBundleStore,
	cfg Config,
	rand io.Reader,
	log *logging.Logger,
) *Service {
	return &Service{ids: ids, ps: ps, bs: bs, cfg: cfg, rand: rand, now: time.Now, log: log}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// GenerateAndStorePreKeys creates a new signed pre-key, marks it current,
// prunes expired superseded ones and stores count new one-time pre-keys.
func (s *Service) GenerateAndStorePreKeys(
	passphrase string,
	count int,
) (domain.SignedPreKeyID, []domain.OneTimePreKeyPublic, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return 0, nil, err
	}
	defer crypto.Wipe(id.XPriv[:])
	defer crypto.Wipe(id.EdPriv[:])

	spkID, err := s.rotateSignedPreKey(id)
	if err != nil {
		return 0, nil, err
	}
	if err := s.pruneSignedPreKeys(spkID); err != nil {
		return 0, nil, err
	}

	publics, err := s.generateOneTimePreKeys(count)
	if err != nil {
		return 0, nil, err
	}
	s.log.Noticef("Generated signed pre-key %s and %d one-time pre-keys", spkID, len(publics))
	return spkID, publics, nil
}

func (s *Service) rotateSignedPreKey(id domain.Identity) (domain.SignedPreKeyID, error) {
	kp, err := crypto.GenerateKeyPair(s.rand)
	if err != nil {
		return 0, err
	}
	spkID, err := s.ps.NextSignedPreKeyID()
	if err != nil {
		return 0, err
	}
	pair := domain.SignedPreKeyPair{
		ID:        spkID,
		KeyPair:   kp,
		Signature: crypto.SignEd25519(id.EdPriv, kp.Public[:]),
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.ps.SaveSignedPreKey(pair); err != nil {
		return 0, err
	}
	if err := s.ps.SetCurrentSignedPreKeyID(spkID); err != nil {
		return 0, err
	}
	return spkID, nil
}

// pruneSignedPreKeys removes signed pre-keys that were superseded more than
// the retention window ago.
func (s *Service) pruneSignedPreKeys(current domain.SignedPreKeyID) error {
	all, err := s.ps.ListSignedPreKeys()
	if err != nil {
		return err
	}
	cutoff := s.now().Add(-s.cfg.SignedPreKeyRetention).UnixMilli()
	for i := 0; i+1 < len(all); i++ {
		if all[i].ID == current {
			continue
		}
		// A key is superseded when its successor was generated.
		if all[i+1].Timestamp < cutoff {
			if err := s.ps.RemoveSignedPreKey(all[i].ID); err != nil {
				return err
			}
			s.log.Debugf("Pruned signed pre-key %s", all[i].ID)
		}
	}
	return nil
}

func (s *Service) generateOneTimePreKeys(count int) ([]domain.OneTimePreKeyPublic, error) {
	if count <= 0 {
		return nil, nil
	}
	ids, err := s.ps.NextOneTimePreKeyIDs(count)
	if err != nil {
		return nil, err
	}
	pairs := make([]domain.OneTimePreKeyPair, 0, count)
	publics := make([]domain.OneTimePreKeyPublic, 0, count)
	for _, opkID := range ids {
		kp, err := crypto.GenerateKeyPair(s.rand)
		if err != nil {
			return nil, err
		}
		p := domain.OneTimePreKeyPair{ID: opkID, KeyPair: kp}
		pairs = append(pairs, p)
		publics = append(publics, p.Public())
	}
	if err := s.ps.SaveOneTimePreKeys(pairs); err != nil {
		return nil, err
	}
	return publics, nil
}

// RegistrationID returns the configured registration id, or the one derived
// from the identity key.
func (s *Service) RegistrationID(id domain.Identity) domain.RegistrationID {
	if s.cfg.RegistrationID != 0 {
		return s.cfg.RegistrationID
	}
	return crypto.DeriveRegistrationID(id.XPub)
}

// LoadPreKeyRegistration builds the registration from the current signed
// pre-key and the unconsumed one-time pre-keys, caches it, and returns it.
func (s *Service) LoadPreKeyRegistration(
	passphrase string,
	username domain.Username,
) (domain.PreKeyRegistration, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyRegistration{}, err
	}
	defer crypto.Wipe(id.XPriv[:])
	defer crypto.Wipe(id.EdPriv[:])

	spkID, ok, err := s.ps.CurrentSignedPreKeyID()
	if err != nil {
		return domain.PreKeyRegistration{}, err
	}
	if !ok {
		return domain.PreKeyRegistration{}, ErrNoSignedPreKey
	}
	spk, found, err := s.ps.LoadSignedPreKey(spkID)
	if err != nil {
		return domain.PreKeyRegistration{}, err
	}
	if !found {
		return domain.PreKeyRegistration{}, ErrNoSignedPreKey
	}

	oneTime, err := s.ps.ListOneTimePreKeyPublics()
	if err != nil {
		return domain.PreKeyRegistration{}, err
	}

	reg := domain.PreKeyRegistration{
		Bundle: domain.PreKeyBundle{
			Username:              username,
			RegistrationID:        s.RegistrationID(id),
			DeviceID:              s.cfg.DeviceID,
			IdentityKey:           id.XPub,
			SigningKey:            id.EdPub,
			SignedPreKeyID:        spk.ID,
			SignedPreKey:          spk.KeyPair.Public,
			SignedPreKeySignature: spk.Signature,
			SignedPreKeyTimestamp: spk.Timestamp,
		},
		OneTimePreKeys: oneTime,
	}
	if err := s.bs.SavePreKeyRegistration(reg); err != nil {
		return domain.PreKeyRegistration{}, err
	}
	return reg, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
