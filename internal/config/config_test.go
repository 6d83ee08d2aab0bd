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

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.SessionCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.CORSMaxAge)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http-addr: ":9000"
database-url: "postgres://file"
log-level: debug
`), 0o600))

	t.Run("file beats flag defaults", func(t *testing.T) {
		cfg, err := Load(newFlags(t, "--config", path))
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.HTTPAddr)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv("FLASHDECK_DATABASE_URL", "postgres://env")
		t.Setenv("FLASHDECK_CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
		cfg, err := Load(newFlags(t, "--config", path))
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", cfg.DatabaseURL)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	})

	t.Run("explicit flag beats env", func(t *testing.T) {
		t.Setenv("FLASHDECK_HTTP_ADDR", ":7000")
		cfg, err := Load(newFlags(t, "--config", path, "--http-addr", ":6000"))
		require.NoError(t, err)
		assert.Equal(t, ":6000", cfg.HTTPAddr)
	})
}

func TestValidate(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(ServeFields...), "server keys are missing")
	assert.NoError(t, cfg.Validate(ReviewFields...))

	cfg.DatabaseURL = "postgres://localhost/flashdeck"
	cfg.BackendURL = "https://project.backend.test"
	cfg.BackendKey = "anon"
	cfg.ServiceRoleKey = "service"
	assert.NoError(t, cfg.Validate(ServeFields...))

	cfg.TraceEnabled = true
	assert.Error(t, cfg.Validate(ServeFields...), "trace endpoint required when tracing")
	cfg.TraceEndpoint = "http://otel.test:4318"
	assert.NoError(t, cfg.Validate(ServeFields...))

	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate(MigrateFields...))
}

func TestDismissTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"":      DefaultDismissTimeout,
		"1500":  1500 * time.Millisecond,
		"abc":   DefaultDismissTimeout,
		"-10":   DefaultDismissTimeout,
		"NaN":   DefaultDismissTimeout,
		"Inf":   DefaultDismissTimeout,
		" 250 ": 250 * time.Millisecond,
	}
	for raw, want := range cases {
		cfg := Config{NotificationDismissTimeout: raw}
		assert.Equal(t, want, cfg.DismissTimeout(), "raw=%q", raw)
	}
}
