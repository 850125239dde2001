// Package config loads and validates the adapter's configuration from
// environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// UnlimitedRetry is the sentinel value of MaxRetry meaning retries are never
// exhausted.
const UnlimitedRetry = -1

// Mode selects how the Status Sink renders lifecycle events.
type Mode string

const (
	// ModeStandard forwards every status event to structured logging.
	ModeStandard Mode = "standard"
	// ModeRich drives an interactive terminal banner and status panel.
	ModeRich Mode = "rich"
)

func modeFromString(s string) Mode {
	if Mode(s) == ModeRich {
		return ModeRich
	}
	return ModeStandard
}

// Config holds the immutable, process-wide configuration for the adapter.
type Config struct {
	RedisHost      string `envconfig:"redis_host" default:"127.0.0.1"`
	RedisPort      int    `envconfig:"redis_port" default:"6379"`
	Host           string `envconfig:"host" default:"0.0.0.0"`
	Port           int    `envconfig:"port" default:"3000"`
	Token          string `envconfig:"token" required:"true"`
	MaxConnections int    `envconfig:"max_connection" default:"3"`
	MaxRetry       int    `envconfig:"max_retry" default:"-1"`
	ModeRaw        string `envconfig:"mode" default:"standard"`
}

// Load reads and validates the SLASHLESS_* environment variables into a
// Config. It returns an error describing the first invalid or missing
// value.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("slashless", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: SLASHLESS_TOKEN cannot be empty")
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("config: SLASHLESS_MAX_CONNECTION must be greater than 0")
	}
	return nil
}

// Mode returns the console mode selected by SLASHLESS_MODE.
func (c *Config) Mode() Mode {
	return modeFromString(c.ModeRaw)
}

// RedisAddr returns the host:port of the configured Redis instance.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ServerAddr returns the host:port the HTTP server should bind to.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Unbounded reports whether MaxRetry is the unbounded sentinel.
func (c *Config) Unbounded() bool {
	return c.MaxRetry == UnlimitedRetry
}

// MaskedToken returns the bearer secret truncated to at most its first 8
// characters followed by "***", safe to print for diagnostics.
func (c *Config) MaskedToken() string {
	n := len(c.Token)
	if n > 8 {
		n = 8
	}
	return c.Token[:n] + "***"
}
