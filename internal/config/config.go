// internal/config/config.go

// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the settings shared by the hinlibs commands.
type Config struct {
	Port                 string
	DatabaseURL          string
	LogLevel             string
	ServiceName          string
	OTLPEndpoint         string
	SessionRatePerMinute int
	SessionBurst         int
}

// Load reads the configuration from environment variables, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ServiceName:  getEnv("SERVICE_NAME", "hinlibs"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.SessionRatePerMinute, err = getEnvInt("SESSION_RATE_PER_MINUTE", 30); err != nil {
		return Config{}, err
	}
	if cfg.SessionBurst, err = getEnvInt("SESSION_BURST", 5); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}
