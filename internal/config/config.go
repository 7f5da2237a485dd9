// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Transport string `envconfig:"TRANSPORT" default:"stdio"`
	Server    ServerConfig
	Shell     ShellConfig
	Logging   LogConfig
}

// ServerConfig holds HTTP server configuration for the http transport.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8765"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// ShellConfig holds shell session configuration.
type ShellConfig struct {
	Path             string `envconfig:"SHELL_PATH" default:"/bin/bash"`
	WorkDir          string `envconfig:"SHELL_WORKDIR" default:""`
	PollIntervalMs   int    `envconfig:"SHELL_POLL_INTERVAL_MS" default:"50"`
	InterruptGraceMs int    `envconfig:"SHELL_INTERRUPT_GRACE_MS" default:"1000"`
	DefaultTimeoutMs int    `envconfig:"SHELL_DEFAULT_TIMEOUT_MS" default:"30000"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Transport: "stdio",
		Server: ServerConfig{
			Port: "8765",
			Host: "127.0.0.1",
		},
		Shell: ShellConfig{
			Path:             "/bin/bash",
			PollIntervalMs:   50,
			InterruptGraceMs: 1000,
			DefaultTimeoutMs: 30000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// PollInterval returns the poll interval as a duration.
func (c ShellConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// InterruptGrace returns the interrupt grace window as a duration.
func (c ShellConfig) InterruptGrace() time.Duration {
	return time.Duration(c.InterruptGraceMs) * time.Millisecond
}

// DefaultTimeout returns the default command timeout as a duration.
func (c ShellConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}
