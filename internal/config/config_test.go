package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, DefaultCompressionThreshold, cfg.Storage.CompressionThreshold)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Fetch.RetryDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.RequestDelay)
	assert.Equal(t, "6mo", cfg.Fetch.Range)
	assert.Equal(t, 400, cfg.Universe.MaxStocks)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 465, cfg.Backup.SMTPPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("FETCH_RETRY_DELAY", "250ms")
	t.Setenv("UNIVERSE_MAX_STOCKS", "10")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.RetryDelay)
	assert.Equal(t, 10, cfg.Universe.MaxStocks)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FETCH_MAX_RETRIES", "not-a-number")
	t.Setenv("FETCH_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Fetch.RetryDelay)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("STORAGE_COMPRESSION_THRESHOLD", "-1")

	_, err := Load()
	assert.Error(t, err)
}
