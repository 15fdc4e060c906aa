package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/cipher"
	"cipherline/internal/protocol/ratchet"
	"cipherline/internal/protocol/x3dh"
	"cipherline/internal/services/session"
	"cipherline/internal/util/keymutex"
)

var (
	// ErrNoSession indicates there is no stored session with the peer.
	ErrNoSession = errors.New("no session with peer; run start-session first")
)

// DecryptError reports a received message that was dropped.
type DecryptError struct {
	From domain.Username
	Err  error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("message from %q could not be decrypted: %v", e.From, e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

// SessionAcceptor is the session service as used by the receiving path.
type SessionAcceptor interface {
	domain.SessionService
	AcceptSession(
		passphrase string,
		peer domain.Username,
		msg domain.PreKeyMessage,
	) (*session.Accepted, error)
}

// Service sends and receives messages over the relay using the Double Ratchet.
type Service struct {
	sessions      SessionAcceptor
	sessionStore  domain.SessionStore
	ratchetStore  domain.RatchetStore
	relayClient   domain.RelayClient
	ratchetConfig ratchet.Config

	locks keymutex.KeyMutex
	now   func() time.Time
	log   *logging.Logger
}

// New constructs a message service.
func New(
	sessions SessionAcceptor,
	sessionStore domain.SessionStore,
	ratchetStore domain.RatchetStore,
	relayClient domain.RelayClient,
	ratchetConfig ratchet.Config,
	log *logging.Logger,
) *Service {
	return &Service{
		sessions:      sessions,
		sessionStore:  sessionStore,
		ratchetStore:  ratchetStore,
		relayClient:   relayClient,
		ratchetConfig: ratchetConfig,
		now:           time.Now,
		log:           log,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) ratchetOptions() []ratchet.Option {
	return []ratchet.Option{ratchet.WithConfig(s.ratchetConfig), ratchet.WithClock(s.now)}
}

// SendMessage encrypts plaintext for the peer and posts it to the relay.
//
// The advanced ratchet state is saved before the envelope is posted, so a
// crash never causes a message key to be reused. Until the peer replies, the
// session's PreKeyMessage is attached so the peer can bootstrap.
func (s *Service) SendMessage(
	ctx context.Context,
	_ string,
	from domain.Username,
	to domain.Username,
	plaintext []byte,
) error {
	unlock := s.locks.Lock(string(to))
	defer unlock()

	sess, ok, err := s.sessionStore.LoadSession(to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}
	peer := domain.ConversationID(to)
	conv, found, err := s.ratchetStore.LoadConversation(peer)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoSession
	}

	st, err := ratchet.Deserialize(conv.State, s.ratchetOptions()...)
	crypto.Wipe(conv.State)
	if err != nil {
		return err
	}
	defer st.Wipe()

	header, ct, err := st.Encrypt(sess.AssociatedData, plaintext)
	if err != nil {
		return err
	}
	if conv.State, err = st.Serialize(); err != nil {
		return err
	}
	if err := s.ratchetStore.SaveConversation(peer, conv); err != nil {
		return err
	}

	env := domain.Envelope{
		From:      from,
		To:        to,
		Header:    header,
		Cipher:    ct,
		PreKey:    sess.PendingPreKey,
		Timestamp: s.now().Unix(),
	}
	if err := s.relayClient.SendMessage(ctx, env); err != nil {
		return err
	}
	s.log.Debugf("Sent message %d to %s", header.MessageIndex, to)
	return nil
}

// ReceiveMessage fetches pending envelopes and decrypts them in order.
//
// Envelopes that cannot be decrypted are dropped and acknowledged; each one
// is reported as a *DecryptError in the joined error returned alongside the
// messages that did decrypt. A storage or relay failure stops processing and
// leaves the remaining envelopes queued.
func (s *Service) ReceiveMessage(
	ctx context.Context,
	passphrase string,
	me domain.Username,
	limit int,
) ([]domain.DecryptedMessage, error) {
	envs, err := s.relayClient.FetchMessages(ctx, me, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DecryptedMessage, 0, len(envs))
	var dropped []error
	processed := 0

	for _, env := range envs {
		plain, err := s.receiveOne(passphrase, env)
		switch {
		case err == nil:
			out = append(out, domain.DecryptedMessage{
				From:      env.From,
				To:        env.To,
				Plaintext: plain,
				Timestamp: env.Timestamp,
			})
		case isMessageError(err):
			s.log.Warningf("Dropping message from %s: %v", env.From, err)
			dropped = append(dropped, &DecryptError{From: env.From, Err: err})
		default:
			return out, s.finish(ctx, me, processed, dropped, err)
		}
		processed++
	}
	return out, s.finish(ctx, me, processed, dropped, nil)
}

// finish acks the processed envelopes and merges the errors to report.
func (s *Service) finish(
	ctx context.Context,
	me domain.Username,
	processed int,
	dropped []error,
	fatal error,
) error {
	if processed > 0 {
		if err := s.relayClient.AckMessages(ctx, me, processed); err != nil {
			fatal = errors.Join(fatal, fmt.Errorf("ack %d messages: %w", processed, err))
		}
	}
	return errors.Join(append(dropped, fatal)...)
}

// receiveOne decrypts a single envelope and persists the advanced state.
func (s *Service) receiveOne(passphrase string, env domain.Envelope) ([]byte, error) {
	unlock := s.locks.Lock(string(env.From))
	defer unlock()

	peer := domain.ConversationID(env.From)
	sess, haveSession, err := s.sessionStore.LoadSession(env.From)
	if err != nil {
		return nil, err
	}
	conv, haveConv, err := s.ratchetStore.LoadConversation(peer)
	if err != nil {
		return nil, err
	}

	var (
		st       *ratchet.State
		accepted *session.Accepted
	)
	bootstrap := env.PreKey != nil &&
		(!haveSession || !haveConv || !env.PreKey.EphemeralKey.Equal(sess.HandshakeEphemeral))
	switch {
	case bootstrap:
		if haveSession && sess.Replaced(env.PreKey.EphemeralKey) {
			return nil, &x3dh.HandshakeError{Op: "accept", Err: x3dh.ErrReplayedHandshake}
		}
		if haveSession && !sess.PeerIdentityKey.Equal(env.PreKey.InitiatorIdentityKey) {
			s.log.Warningf("Identity key of %s changed", env.From)
		}
		if accepted, err = s.sessions.AcceptSession(passphrase, env.From, *env.PreKey); err != nil {
			return nil, err
		}
		if haveSession {
			accepted.Session.Supersede(sess)
		}
		sess, st = accepted.Session, accepted.State
	case haveSession && haveConv:
		st, err = ratchet.Deserialize(conv.State, s.ratchetOptions()...)
		crypto.Wipe(conv.State)
		if err != nil {
			// Not a message error: the stored state is unusable.
			return nil, fmt.Errorf("load conversation with %s: %v", env.From, err)
		}
	default:
		return nil, ErrNoSession
	}
	defer st.Wipe()

	plain, err := st.Decrypt(env.Header, env.Cipher, sess.AssociatedData)
	if err != nil {
		return nil, err
	}
	if accepted != nil {
		if err := accepted.Commit(); err != nil {
			return nil, err
		}
	}

	raw, err := st.Serialize()
	if err != nil {
		return nil, err
	}
	if err := s.ratchetStore.SaveConversation(peer, domain.Conversation{Peer: peer, State: raw}); err != nil {
		return nil, err
	}
	saveSession := bootstrap
	// A reply without a PreKeyMessage proves the peer has our session.
	if !bootstrap && env.PreKey == nil && sess.PendingPreKey != nil {
		sess.PendingPreKey = nil
		saveSession = true
	}
	if saveSession {
		if err := s.sessionStore.SaveSession(env.From, sess); err != nil {
			return nil, err
		}
	}
	return plain, nil
}

// isMessageError reports whether err concerns only the message itself, so
// the envelope can be dropped.
func isMessageError(err error) bool {
	var (
		re *ratchet.RatchetError
		he *x3dh.HandshakeError
		ae *cipher.AuthenticationError
	)
	return errors.As(err, &re) || errors.As(err, &he) || errors.As(err, &ae) ||
		errors.Is(err, ErrNoSession)
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
