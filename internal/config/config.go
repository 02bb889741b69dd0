// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3000" validate:"gt=0,lte=65535"`

	// Database (PostgreSQL)
	DatabaseURL    string        `env:"DATABASE_URL,required" validate:"required"`
	DBMaxConns     int32         `env:"DB_MAX_CONNS" envDefault:"25" validate:"gt=0"`
	DBMinConns     int32         `env:"DB_MIN_CONNS" envDefault:"5" validate:"gte=0,ltefield=DBMaxConns"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"3s" validate:"gt=0"`

	// Cache (Redis L2 + in-process L1)
	RedisURL             string        `env:"REDIS_URL,required" validate:"required"`
	L1CacheCapacity      int64         `env:"L1_CACHE_CAPACITY" envDefault:"1000" validate:"gt=0"`
	L1CacheTTL           time.Duration `env:"L1_CACHE_TTL" envDefault:"5m" validate:"gt=0"`
	CacheDefaultTTL      time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"24h" validate:"gt=0"`
	CacheBreakerFailures uint32        `env:"CACHE_BREAKER_FAILURES" envDefault:"5" validate:"gt=0"`
	CacheBreakerTimeout  time.Duration `env:"CACHE_BREAKER_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	// Click events
	StreamKey            string        `env:"REDIS_STREAM_KEY" envDefault:"refract:click_events" validate:"required"`
	EventsBatchSize      int           `env:"EVENTS_BATCH_SIZE" envDefault:"100" validate:"gt=0"`
	EventsFlushInterval  time.Duration `env:"EVENTS_FLUSH_INTERVAL" envDefault:"1s" validate:"gt=0"`
	EventsMaxBufferSize  int           `env:"EVENTS_MAX_BUFFER_SIZE" envDefault:"10000" validate:"gtefield=EventsBatchSize"`
	EventsMaxStreamLen   int64         `env:"EVENTS_MAX_STREAM_LEN" envDefault:"1000000" validate:"gt=0"`
	EventsPublishTimeout time.Duration `env:"EVENTS_PUBLISH_TIMEOUT" envDefault:"5s" validate:"gt=0"`

	// Enrichment. GeoIP lookups are disabled when the path is empty.
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	LogOutputPath string `env:"LOG_OUTPUT_PATH"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" validate:"gt=0"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GeoIPEnabled reports whether a GeoIP database was configured.
func (c *Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or values are out of range.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
