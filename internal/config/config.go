package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const (
	envPrefix = "FLASHDECK_"

	DefaultDismissTimeout = 5 * time.Second
)

type Config struct {
	HTTPAddr             string        `koanf:"http-addr" validate:"required"`
	DatabaseURL          string        `koanf:"database-url" validate:"required"`
	CORSAllowedOrigins   []string      `koanf:"cors-allowed-origins"`
	CORSAllowCredentials bool          `koanf:"cors-allow-credentials"`
	CORSMaxAge           time.Duration `koanf:"cors-max-age" validate:"gte=0"`
	CookieSecure         bool          `koanf:"cookie-secure"`

	// Hosted auth API. BackendKey is the public (anon) key; ServiceRoleKey
	// is admin-only and used by cleanup and account purges.
	BackendURL     string `koanf:"backend-url" validate:"required,url"`
	BackendKey     string `koanf:"backend-key" validate:"required"`
	ServiceRoleKey string `koanf:"service-role-key" validate:"required"`
	JWTSecret      string `koanf:"jwt-secret"`

	NotificationDismissTimeout string        `koanf:"notification-dismiss-timeout"`
	SessionCacheTTL            time.Duration `koanf:"session-cache-ttl" validate:"gte=0"`

	LogLevel  string `koanf:"log-level" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log-format" validate:"oneof=json console"`

	TraceEnabled  bool   `koanf:"trace-enabled"`
	TraceEndpoint string `koanf:"trace-endpoint" validate:"required_if=TraceEnabled true,omitempty,url"`

	// APIURL is where the review client reaches a running server.
	APIURL string `koanf:"api-url" validate:"required,url"`
}

// Field sets for partial validation, one per command.
var (
	ServeFields   = []string{"HTTPAddr", "DatabaseURL", "BackendURL", "BackendKey", "ServiceRoleKey", "SessionCacheTTL", "CORSMaxAge", "LogLevel", "LogFormat", "TraceEndpoint"}
	MigrateFields = []string{"DatabaseURL", "LogLevel", "LogFormat"}
	CleanupFields = []string{"DatabaseURL", "BackendURL", "BackendKey", "ServiceRoleKey", "LogLevel", "LogFormat"}
	ReviewFields  = []string{"APIURL", "LogLevel", "LogFormat"}
)

var validate = validator.New()

// RegisterFlags declares every key as a flag. Flag defaults double as
// config defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.String("database-url", "", "Postgres DSN of the hosted database")
	fs.StringSlice("cors-allowed-origins", nil, "allowed CORS origins")
	fs.Bool("cors-allow-credentials", false, "allow credentials in CORS requests")
	fs.Duration("cors-max-age", 5*time.Minute, "how long browsers may cache a CORS preflight")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure (serve over HTTPS)")
	fs.String("backend-url", "", "base URL of the hosted backend")
	fs.String("backend-key", "", "public API key of the hosted backend")
	fs.String("service-role-key", "", "service-role key (admin operations)")
	fs.String("jwt-secret", "", "secret used to verify access tokens locally")
	fs.String("notification-dismiss-timeout", "", "notification auto-dismiss timeout in milliseconds")
	fs.Duration("session-cache-ttl", 5*time.Minute, "how long a verified session is cached")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "json", "log encoding (json, console)")
	fs.Bool("trace-enabled", false, "export traces over OTLP/HTTP")
	fs.String("trace-endpoint", "", "OTLP/HTTP endpoint URL")
	fs.String("api-url", "http://localhost:8080", "flashdeck server URL used by the review client")
}

// Load merges, in increasing precedence: the YAML file named by --config,
// FLASHDECK_* environment variables (a .env file is loaded first), and
// explicitly set flags. Unset flags only fill keys nobody else set.
func Load(fs *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "load config file %s", path)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, "load env")
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, errors.Wrap(err, "load flags")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)
	return cfg, nil
}

// Validate checks the given fields, or every field when none are named.
func (c Config) Validate(fields ...string) error {
	var err error
	if len(fields) == 0 {
		err = validate.Struct(c)
	} else {
		err = validate.StructPartial(c, fields...)
	}
	if err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// DismissTimeout parses the notification timeout in milliseconds. Empty,
// non-numeric and non-positive values fall back to the default.
func (c Config) DismissTimeout() time.Duration {
	raw := strings.TrimSpace(c.NotificationDismissTimeout)
	if raw == "" {
		return DefaultDismissTimeout
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return DefaultDismissTimeout
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// envKey maps FLASHDECK_DATABASE_URL to database-url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}

func trimAll(in []string) []string {
	var out []string
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
