package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray config or .env file is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 20*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
}

func TestLoad_Env(t *testing.T) {
	inTempDir(t)
	t.Setenv("NESTBOOK_SERVER_ADDR", ":9090")
	t.Setenv("NESTBOOK_SESSION_TTL", "2h")
	t.Setenv("NESTBOOK_DATABASE_DRIVER", "postgres")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"# local settings\nNESTBOOK_MAIL_FROM=\"hello@nestbook.test\"\nNESTBOOK_LOG_LEVEL=debug\n",
	), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("NESTBOOK_MAIL_FROM")
		os.Unsetenv("NESTBOOK_LOG_LEVEL")
	})
	t.Setenv("NESTBOOK_LOG_LEVEL", "warn")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello@nestbook.test", cfg.Mail.From)
	assert.Equal(t, "warn", cfg.Log.Level, "environment wins over .env")
}

func TestLoad_Flags(t *testing.T) {
	inTempDir(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server.addr", "", "")
	require.NoError(t, flags.Parse([]string{"--server.addr=127.0.0.1:7000"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	inTempDir(t)
	cfg, err := Load(nil)
	require.NoError(t, err)

	require.Error(t, cfg.Validate(), "secret is required")

	cfg.Session.Secret = "0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	require.Error(t, cfg.Validate())
	cfg.Database.URL = "postgres://localhost/nestbook"
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mongo"
	require.Error(t, cfg.Validate())
}
