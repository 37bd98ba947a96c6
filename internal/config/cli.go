package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// CLIConfig configures reportctl from GRADEBOOK_* variables. It reaches the
// same store as the server but needs no transport settings.
type CLIConfig struct {
	DatabaseDriver   string  `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabasePath     string  `env:"DATABASE_PATH" envDefault:"gradebook.db"`
	DatabaseHost     string  `env:"DATABASE_HOST" envDefault:"localhost"`
	DatabasePort     string  `env:"DATABASE_PORT" envDefault:"5432"`
	DatabaseUser     string  `env:"DATABASE_USER"`
	DatabasePassword string  `env:"DATABASE_PASSWORD"`
	DatabaseName     string  `env:"DATABASE_NAME" envDefault:"gradebook"`
	DatabaseSSLMode  string  `env:"DATABASE_SSL_MODE" envDefault:"disable"`
	PassThreshold    float64 `env:"PASS_THRESHOLD" envDefault:"40"`
	TopLimit         int     `env:"TOP_LIMIT" envDefault:"10"`
	NoColor          bool    `env:"NO_COLOR"`
}

func LoadCLI() (CLIConfig, error) {
	cfg, err := env.ParseAsWithOptions[CLIConfig](env.Options{Prefix: "GRADEBOOK_"})
	if err != nil {
		return CLIConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	c := Config{
		Database: cfg.Database(),
		Events:   EventsConfig{Driver: "none"},
		Grading:  GradingConfig{PassThreshold: cfg.PassThreshold},
	}
	if err := c.Validate(); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func (c CLIConfig) Database() DatabaseConfig {
	return DatabaseConfig{
		Driver:   c.DatabaseDriver,
		Path:     c.DatabasePath,
		Host:     c.DatabaseHost,
		Port:     c.DatabasePort,
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		DBName:   c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}
