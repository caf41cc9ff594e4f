// Package config reads CLI defaults from the environment. Command-line
// flags override every value.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/hdlreplay/internal/engine"
)

// Config holds the environment-controlled defaults of the hdlreplay CLI.
type Config struct {
	// MaxInvocations bounds replay invocations per module. <= 0 disables the bound.
	MaxInvocations int `env:"HDLREPLAY_MAX_INVOCATIONS" envDefault:"4096"`

	// MaxEvents bounds events per invocation. <= 0 disables the bound.
	MaxEvents int `env:"HDLREPLAY_MAX_EVENTS" envDefault:"65536"`

	// Database is the SQLite store path. Empty means elaborations are not stored.
	Database string `env:"HDLREPLAY_DB"`

	// Format is the default output format, "text" or "json".
	Format string `env:"HDLREPLAY_FORMAT" envDefault:"text"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		MaxInvocations: engine.DefaultMaxInvocations,
		MaxEvents:      engine.DefaultMaxEvents,
		Format:         "text",
	}
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
