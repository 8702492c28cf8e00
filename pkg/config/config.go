// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "TACHIREADER_"

type Config struct {
	// Tachidesk server
	ServerURL string        `env:"SERVER_URL" envDefault:"http://localhost:4567"`
	Username  string        `env:"USERNAME"`
	Password  string        `env:"PASSWORD"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"30s"`
	RateLimit float64       `env:"RATE_LIMIT" envDefault:"0"`

	// Local database for preferences and reading progress
	DBPath string `env:"DB"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load parses TACHIREADER_* environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}

// DefaultDBPath is ~/.tachireader/reader.db, or a relative path when the
// home directory is unknown.
func DefaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tachireader", "reader.db")
	}
	return filepath.Join(homeDir, ".tachireader", "reader.db")
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("config: server URL is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("config: server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: server URL must be http or https, got %q", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: server URL has no host: %q", c.ServerURL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must not be negative, got %g", c.RateLimit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must not be negative, got %s", c.Timeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}
