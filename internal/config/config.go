// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains every runtime parameter for the API server. Secrets have no
// defaults: a deployment that omits them refuses to start rather than running
// with guessable values.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database  Database  `envPrefix:"POSTGRES_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	Provider  Provider  `envPrefix:"PROVIDER_"`
	RateLimit RateLimit `envPrefix:"RATE_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Database contains Postgres connection parameters.
type Database struct {
	DSN             string        `env:"DSN"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"0"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"0"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"0"`
	AcquireTimeout  time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"0"`
	ApplicationName string        `env:"APP_NAME" envDefault:"sparkz-live"`
}

// Auth contains token-signing parameters.
type Auth struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
}

// Provider contains video provider credentials.
type Provider struct {
	BaseURL     string `env:"BASE_URL" envDefault:"https://api.mux.com"`
	TokenID     string `env:"TOKEN_ID"`
	TokenSecret string `env:"TOKEN_SECRET"`
}

// RateLimit contains request throttling parameters. A zero value disables the
// corresponding limiter.
type RateLimit struct {
	GlobalRPS   float64       `env:"GLOBAL_RPS" envDefault:"0"`
	GlobalBurst int           `env:"GLOBAL_BURST" envDefault:"0"`
	LoginLimit  int           `env:"LOGIN_LIMIT" envDefault:"10"`
	LoginWindow time.Duration `env:"LOGIN_WINDOW" envDefault:"1m"`

	// RedisAddr switches login throttling from per-process counters to a
	// shared Redis store so limits hold across replicas.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisUsername string        `env:"REDIS_USERNAME"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisTimeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"2s"`
}

// Load reads configuration from SPARKZ_-prefixed environment variables and
// validates it.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SPARKZ_"}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first missing mandatory setting.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.DSN) == "" {
		missing = append(missing, "SPARKZ_POSTGRES_DSN")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		missing = append(missing, "SPARKZ_AUTH_JWT_SECRET")
	}
	if strings.TrimSpace(c.Provider.TokenID) == "" {
		missing = append(missing, "SPARKZ_PROVIDER_TOKEN_ID")
	}
	if strings.TrimSpace(c.Provider.TokenSecret) == "" {
		missing = append(missing, "SPARKZ_PROVIDER_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return fmt.Errorf("provider base URL must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	return nil
}
