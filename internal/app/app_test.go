package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cipherline/internal/app"
	"cipherline/internal/domain"
	"cipherline/internal/protocol/ratchet"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.Load([]byte(`Home = "` + home + `"`))
	require.NoError(t, err)

	require.Equal(t, home, cfg.Home)
	require.Equal(t, "NOTICE", cfg.Logging.Level)
	require.Equal(t, app.StorageFile, cfg.Storage.Backend)
	require.Equal(t, ratchet.DefaultConfig(), cfg.Ratchet.Config())
	require.Equal(t, 10, cfg.PreKeys.OneTimeBatch)
	require.Equal(t, 30*24*time.Hour, cfg.PreKeys.SignedPreKeyRetention)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cipherline.toml")
	body := `
Home = "` + dir + `"
RelayURL = "http://127.0.0.1:8080/"

[Logging]
Disable = true
Level = "debug"

[Storage]
Backend = "bolt"

[Ratchet]
MaxSkip = 50
MaxSkippedKeys = 100
MaxSkippedKeyAge = "1h"

[PreKeys]
OneTimeBatch = 3
SignedPreKeyRetention = "48h"
RegistrationID = 7
DeviceID = 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := app.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8080", cfg.RelayURL)
	require.Equal(t, app.StorageBolt, cfg.Storage.Backend)
	require.Equal(t, ratchet.Config{MaxSkip: 50, MaxSkippedKeys: 100, MaxSkippedKeyAge: time.Hour}, cfg.Ratchet.Config())
	require.Equal(t, 48*time.Hour, cfg.PreKeys.SignedPreKeyRetention)
	require.Equal(t, uint32(7), cfg.PreKeys.RegistrationID)

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Relay)
	require.NoError(t, a.Close())
	_, err = os.Stat(filepath.Join(dir, "conversations.db"))
	require.NoError(t, err)
}

func TestLoadRejects(t *testing.T) {
	home := t.TempDir()
	for name, body := range map[string]string{
		"undecoded key": `Home = "` + home + `"` + "\nBogus = 1",
		"bad level":     `Home = "` + home + `"` + "\n[Logging]\nLevel = \"LOUD\"",
		"bad backend":   `Home = "` + home + `"` + "\n[Storage]\nBackend = \"sqlite\"",
		"bad relay":     `Home = "` + home + `"` + "\nRelayURL = \"ftp://relay\"",
		"bad batch":     `Home = "` + home + `"` + "\n[PreKeys]\nOneTimeBatch = -1",
	} {
		_, err := app.Load([]byte(body))
		require.Error(t, err, name)
	}
}

func TestUsernameFromRegisteredAccount(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.Load([]byte(`Home = "` + home + `"` + "\nRelayURL = \"http://relay:8080\"\n[Logging]\nDisable = true"))
	require.NoError(t, err)
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Username("")
	require.ErrorIs(t, err, app.ErrNoAccount)

	require.NoError(t, a.Accounts.SaveAccountProfile(domain.AccountProfile{
		ServerURL: "http://relay:8080/",
		Username:  "alice",
	}))
	me, err := a.Username("")
	require.NoError(t, err)
	require.Equal(t, domain.Username("alice"), me)

	me, err = a.Username("bob")
	require.NoError(t, err)
	require.Equal(t, domain.Username("bob"), me)
}
