// Package config provides configuration management for threatdesk.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"threatdesk/internal/feed"
)

// Config holds all threatdesk configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds Redis connection settings for the alert store.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

// EncryptionConfig holds at-rest field encryption settings. KeyEnv names the
// environment variable carrying the hex-encoded AES key; empty disables
// encryption.
type EncryptionConfig struct {
	KeyEnv string `yaml:"key_env"`
}

// FeedsConfig holds advisory feed collection settings.
type FeedsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Sources      []feed.Source `yaml:"sources"`
}

// RateLimitConfig holds API rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	IncludeHeaders    bool `yaml:"include_headers"`
}

// TelemetryConfig holds logging, metrics and tracing settings.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name"`
	Environment    string  `yaml:"environment"`
	LogLevel       string  `yaml:"log_level"`  // debug, info, warn, error
	LogFormat      string  `yaml:"log_format"` // json, console
	MetricsEnabled bool    `yaml:"metrics_enabled"`
	TracingEnabled bool    `yaml:"tracing_enabled"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	SamplingRate   float64 `yaml:"sampling_rate"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			PasswordEnv: "THREATDESK_REDIS_PASSWORD",
			DB:          0,
			PoolSize:    10,
		},
		Encryption: EncryptionConfig{
			KeyEnv: "THREATDESK_FIELD_KEY",
		},
		Feeds: FeedsConfig{
			Enabled:      false,
			SyncInterval: 15 * time.Minute,
			FetchTimeout: 20 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 120,
			IncludeHeaders:    true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "threatdesk",
			Environment:    "development",
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
			TracingEnabled: false,
			SamplingRate:   0.1,
		},
	}
}

// RedisPassword resolves the Redis password from the configured env var.
func (c *Config) RedisPassword() string {
	if c.Redis.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.Redis.PasswordEnv)
}
