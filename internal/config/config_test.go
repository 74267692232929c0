package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RETAIL_BASE_URL", "RETAIL_REALTIME_URL", "RETAIL_CREDENTIALS_FILE", "RETAIL_REDIS_ADDR", "RETAIL_REDIS_PREFIX",
		"RETAIL_LOG_LEVEL", "RETAIL_LOG_JSON", "RETAIL_RATE_LIMIT", "RETAIL_TIMEOUT", "SENTRY_DSN",
	} {
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, old) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultCredentialsFile(), cfg.CredentialsFile)
	assert.Equal(t, "retail:", cfg.RedisPrefix)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), "test.env")
	contents := "RETAIL_BASE_URL=https://shop1.example.com/api\n" +
		"RETAIL_LOG_LEVEL=debug\n" +
		"RETAIL_RATE_LIMIT=2.5\n" +
		"RETAIL_TIMEOUT=3s\n" +
		"RETAIL_REDIS_ADDR=localhost:6379\n"
	require.NoError(t, os.WriteFile(envFile, []byte(contents), 0600))

	t.Setenv("RETAIL_LOG_LEVEL", "warn")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://shop1.example.com/api", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over .env")
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Empty(t, cfg.CredentialsFile, "redis replaces the default credentials file")
}

func TestLoad_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETAIL_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestRegisterFlags_Override(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETAIL_BASE_URL", "http://env.example.com/api")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-base-url", "http://flag.example.com/api", "-rate", "5"}))

	assert.Equal(t, "http://flag.example.com/api", cfg.BaseURL)
	assert.Equal(t, float64(5), cfg.RateLimit)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}
