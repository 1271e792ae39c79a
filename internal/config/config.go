// Package config loads the hitas-forms settings: defaults, then an optional
// YAML file, then HITAS_ environment variables.
package config

import (
	"time"

	"github.com/goliatone/go-hitasforms/internal/logging/gologger"
	"github.com/goliatone/go-hitasforms/pkg/hitasapi"
)

// Config holds all configuration for the CLI and preview server.
type Config struct {
	API    APIConfig    `koanf:"api"`
	Log    LogConfig    `koanf:"log"`
	Server ServerConfig `koanf:"server"`
	Forms  FormsConfig  `koanf:"forms"`
}

// APIConfig holds the Hitas backend client settings.
type APIConfig struct {
	BaseURL        string               `koanf:"base_url"`
	Token          string               `koanf:"token"`
	Timeout        time.Duration        `koanf:"timeout"`
	Retries        int                  `koanf:"retries"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}

// ServerConfig holds preview server settings.
type ServerConfig struct {
	Address      string        `koanf:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
}

// FormsConfig points at extra form definitions.
type FormsConfig struct {
	// Dir holds YAML definitions overriding the built-in forms.
	Dir string `koanf:"dir"`
	// OpenAPI is a Hitas OpenAPI document whose request bodies become forms.
	OpenAPI string `koanf:"openapi"`
}

// Client maps the API section onto the client configuration.
func (c Config) Client() hitasapi.Config {
	return hitasapi.Config{
		Name:    "hitas-api",
		BaseURL: c.API.BaseURL,
		Token:   c.API.Token,
		Timeout: c.API.Timeout,
		Retries: c.API.Retries,
		Breaker: hitasapi.BreakerConfig{
			MaxFailures:   c.API.CircuitBreaker.MaxFailures,
			Timeout:       c.API.CircuitBreaker.Timeout,
			HalfOpenLimit: c.API.CircuitBreaker.HalfOpenLimit,
		},
	}
}

// Logger maps the log section onto the go-logger adapter configuration.
func (c Config) Logger() gologger.Config {
	return gologger.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: c.Log.AddSource,
	}
}
