package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the orchestrator
type Config struct {
	// Server configuration
	HTTPPort int    `env:"ORCH_HTTP_PORT" envDefault:"8441"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage backend: "redis" or "memory"
	StorageBackend string `env:"ORCH_STORAGE_BACKEND" envDefault:"redis"`

	// Redis configuration
	Redis RedisConfig

	// Worker configuration
	Workers WorkerConfig

	// Lock configuration
	Locks LockConfig

	// Service registry configuration
	Registry RegistryConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// WorkerConfig holds dispatch queue and worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueCapacity       int           `env:"WORKER_QUEUE_CAPACITY" envDefault:"256"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// LockConfig holds lease lock configuration
type LockConfig struct {
	// DefaultTTL is applied by the API layer when a caller asks for an
	// expiring lease without giving an explicit expiry.
	DefaultTTL time.Duration `env:"LOCK_DEFAULT_TTL" envDefault:"60s"`
}

// RegistryConfig holds the service-registry client configuration
type RegistryConfig struct {
	URL     string        `env:"REGISTRY_URL" envDefault:"http://localhost:8443"`
	Timeout time.Duration `env:"REGISTRY_TIMEOUT" envDefault:"10s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	StrategyTimeout time.Duration `env:"TIMEOUT_STRATEGY" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.StorageBackend != "redis" && c.StorageBackend != "memory" {
		return fmt.Errorf("unsupported storage backend: %s (must be redis or memory)", c.StorageBackend)
	}

	if c.StorageBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueCapacity < 1 {
		return fmt.Errorf("worker queue capacity must be at least 1")
	}

	if c.Locks.DefaultTTL <= 0 {
		return fmt.Errorf("lock default TTL must be positive")
	}

	if c.Registry.URL == "" {
		return fmt.Errorf("registry URL is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
