package config

import (
	"fmt"
	"slices"

	pkgconfig "github.com/utafrali/gomarket/pkg/config"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var drivers = []string{DriverSQLite, DriverMemory, DriverRedis, DriverPostgres}

// Config holds all configuration for gomarket.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DeviceID    string `env:"DEVICE_ID" envDefault:"local"`

	// HTTP server
	HTTPPort       int     `env:"GOMARKET_HTTP_PORT" envDefault:"8080"`
	RateLimitRPS   float64 `env:"HTTP_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"HTTP_RATE_LIMIT_BURST" envDefault:"40"`
	TrustProxy     bool    `env:"HTTP_TRUST_PROXY" envDefault:"false"`

	// Storage
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"gomarket.db"`
	BreakerEnabled bool   `env:"STORAGE_BREAKER_ENABLED" envDefault:"false"`

	// Cart keys. LoadKey defaults to StorageKey.
	StorageKey string `env:"CART_STORAGE_KEY" envDefault:"@GoMarket:products"`
	LoadKey    string `env:"CART_LOAD_KEY"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisTTLHours int    `env:"CART_TTL_HOURS" envDefault:"0"`

	// Postgres
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"gomarket"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:""`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"gomarket"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides reads configuration from environment variables, with
// overrides (keyed by variable name) taking precedence.
func LoadWithOverrides(overrides map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("load gomarket config: %w", err)
	}
	if cfg.LoadKey == "" {
		cfg.LoadKey = cfg.StorageKey
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains(drivers, c.StorageDriver) {
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want one of %v", c.StorageDriver, drivers)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("HTTP_RATE_LIMIT_BURST must be at least 1 when rate limiting is on")
	}
	if c.StorageKey == "" {
		return fmt.Errorf("CART_STORAGE_KEY is required")
	}
	if c.StorageDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}
	if c.RedisTTLHours < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
