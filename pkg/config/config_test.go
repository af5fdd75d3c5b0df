package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openbay.yaml")
	data := `
server:
  port: "9999"
  read_timeout: 5s
database:
  driver: postgres
  url: postgres://localhost/openbay?sslmode=disable
rate_limit:
  requests_per_second: 100
observability:
  log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, float64(100), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	// Untouched values keep their defaults.
	assert.Equal(t, "9090", cfg.Server.HealthPort)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openbay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9999\"\n"), 0o600))

	t.Setenv("OPENBAY_PORT", "7777")
	t.Setenv("OPENBAY_DB_MAX_OPEN_CONNS", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires URL", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "postgres"
		cfg.Database.URL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("distributed rate limit requires redis", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimit.Distributed = true
		cfg.Redis.Enabled = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("otel requires endpoint", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = "http"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/openbay.yaml")
	assert.Error(t, err)
}
