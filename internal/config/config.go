package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name used when none is supplied.
const DefaultConfigFile = "config.yaml"

// defaultJWTExpiry is the fallback admin token lifetime.
const defaultJWTExpiry = 12 * time.Hour

// Config is the top-level YAML configuration for the server.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`
	// Database holds the GORM DSN (PostgreSQL or SQLite).
	Database DatabaseConfig `yaml:"database"`
	// JWT configures admin token signing.
	JWT JWTConfig `yaml:"jwt"`
	// Redis configures the optional active-rule cache.
	Redis RedisConfig `yaml:"redis"`
	// Referral configures referral link issuance.
	Referral ReferralConfig `yaml:"referral"`
	// Log configures log output.
	Log LogConfig `yaml:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// DSN is the database connection string.
	DSN string `yaml:"dsn"`
}

// JWTConfig holds admin token signing settings.
type JWTConfig struct {
	// Secret is the HS256 signing secret.
	Secret string `yaml:"secret"`
	// ExpiryMinutes is the token lifetime in minutes.
	ExpiryMinutes int `yaml:"expiry-minutes"`
}

// Expiry returns the configured token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryMinutes <= 0 {
		return defaultJWTExpiry
	}
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// RedisConfig holds optional Redis cache settings.
type RedisConfig struct {
	// Addr is the Redis address; empty disables caching.
	Addr string `yaml:"addr"`
	// Password is the optional Redis password.
	Password string `yaml:"password"`
	// DB selects the Redis logical database.
	DB int `yaml:"db"`
}

// ReferralConfig holds referral link settings.
type ReferralConfig struct {
	// LinkBaseURL is the base URL referral links are built on.
	LinkBaseURL string `yaml:"link-base-url"`
}

// LogConfig holds log output settings.
type LogConfig struct {
	// Level is the logrus level name; empty means info.
	Level string `yaml:"level"`
	// File enables rotating file output when non-empty.
	File string `yaml:"file"`
	// MaxSizeMB caps a log file's size before rotation.
	MaxSizeMB int `yaml:"max-size-mb"`
	// MaxBackups caps the number of rotated files kept.
	MaxBackups int `yaml:"max-backups"`
}

// ResolveConfigPath returns the effective config path, falling back to
// the default file in the working directory.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		return trimmed
	}
	wd, errWd := os.Getwd()
	if errWd != nil {
		return DefaultConfigFile
	}
	return filepath.Join(wd, DefaultConfigFile)
}

// Load reads and parses the YAML configuration file.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	var cfg Config
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	if errValidate := cfg.validate(); errValidate != nil {
		return nil, errValidate
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	return nil
}
