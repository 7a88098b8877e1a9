package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	require.Equal(t, 5*time.Minute, cfg.Session.WarningTime)
	require.Equal(t, 30*time.Second, cfg.Session.WarningPoll)
	require.Equal(t, time.Minute, cfg.Session.ExpiryPoll)
	require.Equal(t, 3*time.Second, cfg.Audit.Timeout)
	require.Equal(t, "https://api.ipify.org?format=json", cfg.Audit.IPEchoURL)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.False(t, cfg.Server.TrustProxy)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	settings := []byte("jwt:\n  secret: from_file\nsession:\n  timeout: 10m\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "settings.yml"), settings, 0o644))

	t.Setenv("DB_SOURCE", "postgres://env/db")
	t.Setenv("SERVER_TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from_file", cfg.JWT.Secret)
	require.Equal(t, 10*time.Minute, cfg.Session.Timeout)
	require.Equal(t, "postgres://env/db", cfg.DB.Source)
	require.True(t, cfg.Server.TrustProxy)
}

func TestValidateServer(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateServer()
	require.ErrorIs(t, err, ErrMissingJWTSecret)
	require.ErrorIs(t, err, ErrMissingDBSource)

	cfg.JWT.Secret = "   "
	cfg.DB.Source = "postgres://localhost/parcelview"
	err = cfg.ValidateServer()
	require.ErrorIs(t, err, ErrMissingJWTSecret)
	require.NotErrorIs(t, err, ErrMissingDBSource)

	cfg.JWT.Secret = "s3cret"
	require.NoError(t, cfg.ValidateServer())
}
