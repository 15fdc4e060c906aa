package session

import (
	"context"
	"io"
	"time"

	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/ratchet"
	"cipherline/internal/protocol/x3dh"
)

// Service performs X3DH and persists sessions.
//
// A session holds the metadata about a peer's handshake. The shared secret
// only ever seeds the ratchet state and is wiped right after.
type Service struct {
	idStore      domain.IdentityStore
	prekeyStore  domain.PreKeyStore
	sessionStore domain.SessionStore
	ratchetStore domain.RatchetStore
	relayClient  domain.RelayClient

	registrationID domain.RegistrationID
	ratchetConfig  ratchet.Config
	rand           io.Reader
	now            func() time.Time
	log            *logging.Logger
}

// Config carries the handshake parameters of the local install.
type Config struct {
	RegistrationID domain.RegistrationID
	Ratchet        ratchet.Config
}

// New constructs a session service. A nil rand uses crypto/rand.
func New(
	idStore domain.IdentityStore,
	prekeyStore domain.PreKeyStore,
	sessionStore domain.SessionStore,
	ratchetStore domain.RatchetStore,
	relayClient domain.RelayClient,
	cfg Config,
	rand io.Reader,
	log *logging.Logger,
) *Service {
	return &Service{
		idStore:        idStore,
		prekeyStore:    prekeyStore,
		sessionStore:   sessionStore,
		ratchetStore:   ratchetStore,
		relayClient:    relayClient,
		registrationID: cfg.RegistrationID,
		ratchetConfig:  cfg.Ratchet,
		rand:           rand,
		now:            time.Now,
		log:            log,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) ratchetOptions() []ratchet.Option {
	return []ratchet.Option{
		ratchet.WithConfig(s.ratchetConfig),
		ratchet.WithRand(s.rand),
		ratchet.WithClock(s.now),
	}
}

// InitiateSession runs X3DH against the peer's pre-key bundle, seeds a
// ratchet state as initiator and stores both.
//
// Any existing session with the peer is replaced. The PreKeyMessage needed by
// the peer is kept on the session and sent with every message until the peer
// replies.
func (s *Service) InitiateSession(
	ctx context.Context,
	passphrase string,
	peer domain.Username,
) (domain.Session, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.Session{}, err
	}
	defer crypto.Wipe(id.XPriv[:])

	bundle, err := s.relayClient.FetchPreKeyBundle(ctx, peer)
	if err != nil {
		return domain.Session{}, err
	}

	res, err := x3dh.Initiate(s.rand, id, bundle)
	if err != nil {
		return domain.Session{}, err
	}
	defer res.Wipe()

	st, err := ratchet.InitAsInitiator(s.rand, res.SharedSecret, bundle.SignedPreKey, s.ratchetOptions()...)
	if err != nil {
		return domain.Session{}, err
	}
	defer st.Wipe()
	raw, err := st.Serialize()
	if err != nil {
		return domain.Session{}, err
	}

	regID := s.registrationID
	if regID == 0 {
		regID = crypto.DeriveRegistrationID(id.XPub)
	}
	session := domain.Session{
		PeerUsername:       peer,
		PeerIdentityKey:    bundle.IdentityKey,
		PeerSigningKey:     bundle.SigningKey,
		PeerRegistrationID: bundle.RegistrationID,
		AssociatedData:     res.AssociatedData,
		CreatedUTC:         s.now().Unix(),
		HandshakeEphemeral: res.EphemeralPublic,
		PendingPreKey: &domain.PreKeyMessage{
			InitiatorIdentityKey: id.XPub,
			InitiatorSigningKey:  id.EdPub,
			EphemeralKey:         res.EphemeralPublic,
			SignedPreKeyID:       res.SignedPreKeyID,
			OneTimePreKeyID:      res.OneTimePreKeyID,
			RegistrationID:       regID,
		},
	}

	prev, ok, err := s.sessionStore.LoadSession(peer)
	if err != nil {
		return domain.Session{}, err
	}
	if ok {
		session.Supersede(prev)
	}

	conv := domain.Conversation{Peer: domain.ConversationID(peer), State: raw}
	if err := s.ratchetStore.SaveConversation(conv.Peer, conv); err != nil {
		return domain.Session{}, err
	}
	if err := s.sessionStore.SaveSession(peer, session); err != nil {
		return domain.Session{}, err
	}
	if res.OneTimePreKeyID == nil {
		s.log.Warningf("Bundle for %s carried no one-time pre-key", peer)
	}
	s.log.Infof("Initiated session with %s using signed pre-key %s", peer, res.SignedPreKeyID)
	return session, nil
}

// Accepted is a responder session that has not been committed yet.
type Accepted struct {
	Session domain.Session
	State   *ratchet.State

	store   domain.PreKeyStore
	consume []domain.OneTimePreKeyID
}

// Commit consumes the one-time pre-key the handshake used. Call it once the
// first message has been authenticated.
func (a *Accepted) Commit() error {
	for _, id := range a.consume {
		if err := a.store.MarkOneTimePreKeyConsumed(id); err != nil {
			return err
		}
	}
	a.consume = nil
	return nil
}

// deferredConsume records one-time pre-key consumption instead of applying it.
type deferredConsume struct {
	domain.PreKeyStore
	ids []domain.OneTimePreKeyID
}

func (d *deferredConsume) MarkOneTimePreKeyConsumed(id domain.OneTimePreKeyID) error {
	d.ids = append(d.ids, id)
	return nil
}

// AcceptSession runs the responder side of X3DH for a received PreKeyMessage
// and returns the session together with a fresh responder ratchet state.
// Nothing is persisted until the caller commits the result.
func (s *Service) AcceptSession(
	passphrase string,
	peer domain.Username,
	msg domain.PreKeyMessage,
) (*Accepted, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(id.XPriv[:])

	spk, ok, err := s.prekeyStore.LoadSignedPreKey(msg.SignedPreKeyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &x3dh.HandshakeError{Op: "accept", Err: x3dh.ErrUnknownSignedPreKey}
	}

	source := &deferredConsume{PreKeyStore: s.prekeyStore}
	res, err := x3dh.Respond(id, spk, source, msg)
	if err != nil {
		return nil, err
	}
	defer res.Wipe()

	st, err := ratchet.InitAsResponder(res.SharedSecret, spk.KeyPair, s.ratchetOptions()...)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		PeerUsername:       peer,
		PeerIdentityKey:    msg.InitiatorIdentityKey,
		PeerSigningKey:     msg.InitiatorSigningKey,
		PeerRegistrationID: msg.RegistrationID,
		AssociatedData:     res.AssociatedData,
		CreatedUTC:         s.now().Unix(),
		HandshakeEphemeral: msg.EphemeralKey,
	}
	s.log.Infof("Accepted session from %s on signed pre-key %s", peer, msg.SignedPreKeyID)
	return &Accepted{Session: session, State: st, store: s.prekeyStore, consume: source.ids}, nil
}

// GetSession retrieves the stored session for the given peer.
func (s *Service) GetSession(peer domain.Username) (domain.Session, bool, error) {
	return s.sessionStore.LoadSession(peer)
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
