package app

import (
	"errors"
	"net/http"

	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/domain"
	"cipherline/internal/log"
	"cipherline/internal/relay"
	identitysvc "cipherline/internal/services/identity"
	messagesvc "cipherline/internal/services/message"
	prekeysvc "cipherline/internal/services/prekey"
	sessionsvc "cipherline/internal/services/session"
)

// App bundles all stores, services, and clients for the CLI.
type App struct {
	Config *Config

	Identity *identitysvc.Service
	PreKeys  *prekeysvc.Service
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service
	Accounts domain.AccountStore
	// Relay is nil when no relay URL is configured.
	Relay    domain.RelayClient

	logBackend *log.Backend
	log        *logging.Logger
	stores     *stores
}

// New constructs the dependency graph from cfg, which must have passed
// FixupAndValidate. httpClient may be nil.
func New(cfg *Config, httpClient *http.Client) (*App, error) {
	lb, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}
	st, err := openStores(cfg)
	if err != nil {
		lb.Close()
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Accounts:   st.account,
		logBackend: lb,
		log:        lb.GetLogger("app"),
		stores:     st,
	}
	if cfg.RelayURL != "" {
		rc := relay.NewHTTP(cfg.RelayURL)
		if httpClient != nil {
			rc.HTTP = httpClient
		}
		a.Relay = rc
	}

	rcfg := cfg.Ratchet.Config()
	a.Identity = identitysvc.New(st.identity, nil, lb.GetLogger("identity"))
	a.PreKeys = prekeysvc.New(st.identity, st.prekey, st.bundle, prekeysvc.Config{
		RegistrationID:        domain.RegistrationID(cfg.PreKeys.RegistrationID),
		DeviceID:              domain.DeviceID(cfg.PreKeys.DeviceID),
		SignedPreKeyRetention: cfg.PreKeys.SignedPreKeyRetention,
	}, nil, lb.GetLogger("prekey"))
	a.Sessions = sessionsvc.New(st.identity, st.prekey, st.session, st.ratchet, a.Relay, sessionsvc.Config{
		RegistrationID: domain.RegistrationID(cfg.PreKeys.RegistrationID),
		Ratchet:        rcfg,
	}, nil, lb.GetLogger("session"))
	a.Messages = messagesvc.New(a.Sessions, st.session, st.ratchet, a.Relay, rcfg, lb.GetLogger("message"))

	a.log.Debugf("Using %s storage under %s", cfg.Storage.Backend, cfg.Home)
	return a, nil
}

// ErrNoAccount is returned by Username when no name was given and nothing was
// registered on the configured relay.
var ErrNoAccount = errors.New("no account registered on this relay")

// Username resolves the local account name. An explicit name wins; otherwise
// the name registered on the configured relay is used.
func (a *App) Username(explicit string) (domain.Username, error) {
	if explicit != "" {
		return domain.Username(explicit), nil
	}
	p, ok, err := a.Accounts.LoadAccountProfile(a.Config.RelayURL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoAccount
	}
	return p.Username, nil
}

// Close releases the stores and the log backend.
func (a *App) Close() error {
	err := a.stores.close()
	if cerr := a.logBackend.Close(); err == nil {
		err = cerr
	}
	return err
}
