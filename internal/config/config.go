// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Sternrassler/photo-cache/pkg/cache"
	"github.com/Sternrassler/photo-cache/pkg/logging"
	"github.com/Sternrassler/photo-cache/pkg/origin"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Origin OriginConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Log    LogConfig
	Warmup WarmupConfig
}

// OriginConfig configures the upstream photo API client.
type OriginConfig struct {
	BaseURL     string        `env:"ORIGIN_BASE_URL" envDefault:"https://jsonplaceholder.typicode.com"`
	UserAgent   string        `env:"USER_AGENT" envDefault:"photo-cache/0.1.0"`
	Timeout     time.Duration `env:"ORIGIN_TIMEOUT" envDefault:"30s"`
	MaxAttempts int           `env:"ORIGIN_MAX_ATTEMPTS" envDefault:"3"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// CacheConfig configures the cache-aside orchestrator.
type CacheConfig struct {
	Backend           string        `env:"CACHE_BACKEND" envDefault:"redis"`
	DefaultTTLSeconds int           `env:"CACHE_DEFAULT_TTL_SECONDS" envDefault:"3600"`
	MaxTTLSeconds     int           `env:"CACHE_MAX_TTL_SECONDS" envDefault:"0"`
	KeyPrefix         string        `env:"CACHE_KEY_PREFIX"`
	SingleFlight      bool          `env:"CACHE_SINGLE_FLIGHT" envDefault:"false"`
	WriteTimeout      time.Duration `env:"CACHE_WRITE_TIMEOUT" envDefault:"2s"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// WarmupConfig configures the startup prefetch. Albums 0 disables it.
type WarmupConfig struct {
	Albums      int `env:"WARMUP_ALBUMS" envDefault:"0"`
	Concurrency int `env:"WARMUP_CONCURRENCY" envDefault:"4"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the environment parser cannot.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Cache.Backend != BackendRedis && c.Cache.Backend != BackendMemory {
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.Cache.Backend)
	}
	if c.Cache.DefaultTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL_SECONDS must be positive, got %d", c.Cache.DefaultTTLSeconds)
	}
	if c.Cache.MaxTTLSeconds < 0 {
		return fmt.Errorf("CACHE_MAX_TTL_SECONDS must not be negative, got %d", c.Cache.MaxTTLSeconds)
	}
	if c.Cache.MaxTTLSeconds > 0 && c.Cache.MaxTTLSeconds < c.Cache.DefaultTTLSeconds {
		return fmt.Errorf("CACHE_MAX_TTL_SECONDS (%d) must not be below CACHE_DEFAULT_TTL_SECONDS (%d)",
			c.Cache.MaxTTLSeconds, c.Cache.DefaultTTLSeconds)
	}
	if c.Cache.WriteTimeout <= 0 {
		return fmt.Errorf("CACHE_WRITE_TIMEOUT must be positive, got %s", c.Cache.WriteTimeout)
	}
	if c.Origin.MaxAttempts < 1 {
		return fmt.Errorf("ORIGIN_MAX_ATTEMPTS must be >= 1, got %d", c.Origin.MaxAttempts)
	}
	if c.Warmup.Albums < 0 {
		return fmt.Errorf("WARMUP_ALBUMS must not be negative, got %d", c.Warmup.Albums)
	}
	if c.Warmup.Albums > 0 && c.Warmup.Concurrency < 1 {
		return fmt.Errorf("WARMUP_CONCURRENCY must be >= 1, got %d", c.Warmup.Concurrency)
	}
	return nil
}

// CachePolicy returns the TTL policy for the orchestrator.
func (c *Config) CachePolicy() cache.Policy {
	return cache.Policy{
		DefaultTTL: time.Duration(c.Cache.DefaultTTLSeconds) * time.Second,
		MaxTTL:     time.Duration(c.Cache.MaxTTLSeconds) * time.Second,
	}
}

// OriginClientConfig returns the origin client configuration.
func (c *Config) OriginClientConfig() origin.Config {
	cfg := origin.DefaultConfig(c.Origin.UserAgent)
	cfg.BaseURL = c.Origin.BaseURL
	cfg.Timeout = c.Origin.Timeout
	cfg.Retry.MaxAttempts = c.Origin.MaxAttempts
	return cfg
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}
