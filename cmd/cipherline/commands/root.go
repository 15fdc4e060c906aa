package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"cipherline/internal/app"
	"cipherline/internal/domain"
)

const requestTimeout = 30 * time.Second

var (
	configFile string
	home       string
	relayURL   string
	passphrase string
	username   string

	appCtx *app.App
)

var (
	errNoPassphrase = errors.New("passphrase required (-p)")
	errNoRelay      = errors.New("no relay configured. use --relay or RelayURL in the config")
	errNoUsername   = errors.New("--username required: nothing registered on this relay yet")
)

func loadConfig() (*app.Config, error) {
	cfg := new(app.Config)
	if configFile != "" {
		var err error
		if cfg, err = app.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if home != "" {
		cfg.Home = home
	}
	if relayURL != "" {
		cfg.RelayURL = relayURL
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:          "cipherline",
		Short:        "End-to-end encrypted messaging CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			appCtx, err = app.New(cfg, &http.Client{Timeout: requestTimeout})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML config file")
	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.cipherline)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		startSessionCmd(),
		sendCmd(),
		recvCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return errNoPassphrase
	}
	return nil
}

func requireRelay() error {
	if appCtx.Relay == nil {
		return errNoRelay
	}
	return requirePassphrase()
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// accountName returns --username, or the account registered on the relay.
func accountName() (domain.Username, error) {
	me, err := appCtx.Username(username)
	if errors.Is(err, app.ErrNoAccount) {
		return "", errNoUsername
	}
	return me, err
}
