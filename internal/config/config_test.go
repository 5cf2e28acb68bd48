package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8441, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Workers.PoolSize)
	assert.Equal(t, 256, cfg.Workers.QueueCapacity)
	assert.Equal(t, 60*time.Second, cfg.Locks.DefaultTTL)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.StrategyTimeout)
	assert.Equal(t, "http://localhost:8443", cfg.Registry.URL)
	assert.Equal(t, ":8441", cfg.GetHTTPAddr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ORCH_HTTP_PORT", "9000")
	t.Setenv("ORCH_STORAGE_BACKEND", "memory")
	t.Setenv("WORKER_POOL_SIZE", "10")
	t.Setenv("LOCK_DEFAULT_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 10, cfg.Workers.PoolSize)
	assert.Equal(t, 5*time.Minute, cfg.Locks.DefaultTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port", "ORCH_HTTP_PORT", "0"},
		{"unknown backend", "ORCH_STORAGE_BACKEND", "postgres"},
		{"zero pool size", "WORKER_POOL_SIZE", "0"},
		{"zero queue capacity", "WORKER_QUEUE_CAPACITY", "0"},
		{"invalid log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
