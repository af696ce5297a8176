// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings with local-development defaults.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	TxMaxAttempts int    `env:"TX_MAX_ATTEMPTS" envDefault:"5"`

	Database Database
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"eventpulse"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Load parses the environment. Transaction attempts are clamped to at least
// 2 so one rerun is always visible to callers.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TxMaxAttempts < 2 {
		cfg.TxMaxAttempts = 2
	}
	return cfg, nil
}
