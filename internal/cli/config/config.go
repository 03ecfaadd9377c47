// Package config loads service configuration from speckle.yml and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config represents the service configuration
type Config struct {
	Speckle SpeckleConfig `mapstructure:"speckle"`
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
}

// SpeckleConfig holds the upstream Speckle server settings
type SpeckleConfig struct {
	ServerURL    string        `mapstructure:"server_url"`
	Token        string        `mapstructure:"token"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StoreConfig selects and configures the shared object store
type StoreConfig struct {
	Backend string       `mapstructure:"backend"`
	Redis   RedisConfig  `mapstructure:"redis"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// RedisConfig holds redis store settings
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SQLiteConfig holds sqlite store settings
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads speckle.yml (or speckle.yaml) from the current directory,
// applies SPECKLE_* environment overrides, and validates the result.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads configuration from the given directory.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("speckle.server_url", "https://app.speckle.systems")
	v.SetDefault("speckle.fetch_timeout", 30*time.Second)
	v.SetDefault("speckle.max_retries", 3)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.ttl", 24*time.Hour)
	v.SetDefault("store.sqlite.path", "speckle-objects.db")
	v.SetDefault("log.level", "info")

	v.SetConfigName("speckle")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SPECKLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The two settings operators most commonly inject.
	v.BindEnv("speckle.token", "SPECKLE_TOKEN")
	v.BindEnv("speckle.server_url", "SPECKLE_SERVER_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Speckle.ServerURL == "" {
		return fmt.Errorf("speckle.server_url must not be empty")
	}
	if cfg.Speckle.MaxRetries < 0 {
		return fmt.Errorf("speckle.max_retries must not be negative, got: %d", cfg.Speckle.MaxRetries)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	switch cfg.Store.Backend {
	case StoreNone, StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("store.backend must be one of none, memory, redis, sqlite, got: %s", cfg.Store.Backend)
	}

	if cfg.Store.Backend == StoreSQLite && cfg.Store.SQLite.Path == "" {
		return fmt.Errorf("store.sqlite.path must not be empty")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}

	return nil
}
