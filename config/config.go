// Package config loads Beep SDK configuration from the environment and the
// project's beep.config.json, and scaffolds those files for new projects.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Mode selects the MCP transport
type Mode string

const (
	ModeHTTPS Mode = "https"
	ModeStdio Mode = "stdio"
)

// Config is the environment-derived SDK configuration
type Config struct {
	APIKey            string        `env:"BEEP_API_KEY"`
	ServerURL         string        `env:"BEEP_SERVER_URL"`
	FallbackServerURL string        `env:"SERVER_URL"`
	CommunicationMode Mode          `env:"COMMUNICATION_MODE" envDefault:"stdio"`
	Port              int           `env:"PORT" envDefault:"3000"`
	PollInterval      time.Duration `env:"BEEP_POLL_INTERVAL" envDefault:"2s"`
	PollTimeout       time.Duration `env:"BEEP_POLL_TIMEOUT" envDefault:"2m"`
}

// Load reads configuration from the environment, first merging a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	// Missing .env is fine; real env vars still apply.
	godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if c.ServerURL == "" {
		c.ServerURL = c.FallbackServerURL
	}

	switch c.CommunicationMode {
	case ModeHTTPS, ModeStdio:
	default:
		return nil, fmt.Errorf("invalid COMMUNICATION_MODE %q: want https or stdio", c.CommunicationMode)
	}

	return &c, nil
}
