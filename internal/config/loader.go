// Package config loads the service configuration from the process
// environment, with optional .env support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort    int
	SQLiteDSN   string
	TokenSecret string
	TokenTTL    time.Duration
	LogLevel    string
}

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory is applied first when present;
// variables already set in the environment win. Optional fields fall back to
// defaults while missing and invalid values are accumulated and reported
// together.
func Load() (Config, error) {
	// Ignore a missing .env; it is a local development convenience only.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:reservations.db?_foreign_keys=on",
		TokenTTL:  24 * time.Hour,
		LogLevel:  "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RESERVATIONS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RESERVATIONS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RESERVATIONS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("RESERVATIONS_TOKEN_SECRET")); secret == "" {
		missing = append(missing, "RESERVATIONS_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RESERVATIONS_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATIONS_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if level := strings.TrimSpace(os.Getenv("RESERVATIONS_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
