package infra

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	fs := newFlagSet(t, "--security.jwt_secret=s3cret")

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, []string{"/local/", "file://"}, cfg.Media.LocalPrefixes)
	assert.Equal(t, "video_resources", cfg.Catalog.Table)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_EnvOverridesFlags(t *testing.T) {
	t.Setenv("ELEVATE_SECURITY_JWT_SECRET", "from-env")
	t.Setenv("ELEVATE_TIMEZONE", "Europe/Berlin")
	fs := newFlagSet(t, "--port=9000")

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	fs := newFlagSet(t,
		"--database.driver=mysql",
		"--env=staging",
		"--timezone=Mars/Olympus",
	)

	_, err := LoadConfig(fs)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "security.jwt_secret is required")
	assert.Contains(t, msg, "env must be one of (development production)")
	assert.Contains(t, msg, "database.username is required")
	assert.Contains(t, msg, "database.schema is required")
	assert.Contains(t, msg, "timezone is invalid")
}
