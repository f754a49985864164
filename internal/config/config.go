package config

import (
	"os"
	"time"

	"basketboard/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Backend  BackendConfig `validate:"required"`
	Server   ServerConfig  `validate:"required"`
	Session  SessionConfig `validate:"required"`
	Database DatabaseConfig
}

// BackendConfig holds settings for the remote analytics backend
type BackendConfig struct {
	BaseURL string `validate:"required"`
	// Timeout of 0 means no client-side deadline; a long-running
	// analysis call then blocks its own trigger until the backend answers.
	Timeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `validate:"required"`
}

// SessionConfig holds local session persistence settings
type SessionConfig struct {
	StateDir string `validate:"required"`
}

// DatabaseConfig holds the optional run-history database settings.
// An empty URL disables run history entirely.
type DatabaseConfig struct {
	URL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Backend: BackendConfig{
			BaseURL: getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:5000/api"),
			Timeout: getEnvDurationOrDefault("HTTP_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Session: SessionConfig{
			StateDir: getEnvOrDefault("STATE_DIR", ".basketboard"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Backend.BaseURL == "" {
		return errors.ConfigInvalid("backend base URL is required")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Session.StateDir == "" {
		return errors.ConfigInvalid("session state directory is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
