// Package config loads CLI configuration from .env files, the environment
// and command line flags, in increasing order of precedence.
package config

import (
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL  = "http://localhost:8000/api"
	DefaultLogLevel = "info"
	DefaultTimeout  = 10 * time.Second
)

// Config holds settings shared by the command line tools
type Config struct {
	BaseURL         string        `env:"RETAIL_BASE_URL"`
	RealtimeURL     string        `env:"RETAIL_REALTIME_URL"`
	CredentialsFile string        `env:"RETAIL_CREDENTIALS_FILE"`
	RedisAddr       string        `env:"RETAIL_REDIS_ADDR"`
	RedisPrefix     string        `env:"RETAIL_REDIS_PREFIX"`
	LogLevel        string        `env:"RETAIL_LOG_LEVEL"`
	LogJSON         bool          `env:"RETAIL_LOG_JSON"`
	RateLimit       float64       `env:"RETAIL_RATE_LIMIT"`
	Timeout         time.Duration `env:"RETAIL_TIMEOUT"`
	SentryDSN       string        `env:"SENTRY_DSN"`
}

// Load reads the given .env files (".env" when none are named), then decodes
// the environment. Missing .env files are ignored. Variables already set in
// the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to load %s", f)
		}
	}

	cfg := &Config{}
	if err := envdecode.StrictDecode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, errors.Wrap(err, "failed to decode environment")
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CredentialsFile == "" && c.RedisAddr == "" {
		c.CredentialsFile = DefaultCredentialsFile()
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = "retail:"
	}
}

// RegisterFlags binds flags that override the loaded values. Call before
// fs.Parse.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "API base URL")
	fs.StringVar(&c.RealtimeURL, "realtime-url", c.RealtimeURL, "Notification websocket URL (derived from the base URL when empty)")
	fs.StringVar(&c.CredentialsFile, "credentials", c.CredentialsFile, "Credentials file")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for credential storage (overrides -credentials)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "Log as JSON")
	fs.Float64Var(&c.RateLimit, "rate", c.RateLimit, "Max requests per second (0 for unlimited)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Request timeout")
}

// DefaultCredentialsFile returns ~/.config/retail/credentials.json, or a
// file in the working directory when no home directory is known.
func DefaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "retail-credentials.json"
	}
	return filepath.Join(dir, "retail", "credentials.json")
}
