package config

import (
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the control plane configuration, loaded from an optional yaml
// file and overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServerConfig configures the operational HTTP endpoint (metrics, health).
type ServerConfig struct {
	OpsAddr string `yaml:"ops_addr" env:"OPS_ADDR"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	// EncryptionKey is the hex-encoded 32-byte key sealing confidential
	// columns. Empty disables encryption (local development only).
	EncryptionKey string `yaml:"encryption_key" env:"DB_ENCRYPTION_KEY"`
}

// RedisConfig configures the optional visibility scope cache.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"REDIS_ADDR"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"REDIS_TTL_SECONDS"`
}

// LoggingConfig mirrors pkg/logger's settings.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// DefaultsConfig carries platform-wide defaults applied at write time.
type DefaultsConfig struct {
	// AppSSHAccess resolves an app's enable_ssh flag when a create leaves it
	// unset.
	AppSSHAccess bool `yaml:"app_ssh_access" env:"DEFAULT_APP_SSH_ACCESS"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{OpsAddr: ":9102"},
		Database: DatabaseConfig{DSN: "postgres://localhost/control_plane?sslmode=disable"},
		Redis:    RedisConfig{TTLSeconds: 30},
		Logging:  LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
		Defaults: DefaultsConfig{AppSSHAccess: false},
	}
}

// Load reads CONFIG_PATH (or config/control_plane.yaml) when present, then
// applies environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/control_plane.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	return cfg, nil
}
