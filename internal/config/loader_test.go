package config

import (
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"RESERVATIONS_HTTP_PORT",
			"RESERVATIONS_SQLITE_DSN",
			"RESERVATIONS_TOKEN_TTL",
			"RESERVATIONS_LOG_LEVEL",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		const secret = "super-secret"
		t.Setenv("RESERVATIONS_TOKEN_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:reservations.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.TokenSecret != secret {
			t.Fatalf("expected token secret to be %q, got %q", secret, cfg.TokenSecret)
		}
		if cfg.TokenTTL != 24*time.Hour {
			t.Fatalf("expected default token TTL 24h, got %s", cfg.TokenTTL)
		}
		if cfg.LogLevel != "info" {
			t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		for _, key := range []string{
			"RESERVATIONS_TOKEN_SECRET",
			"RESERVATIONS_HTTP_PORT",
			"RESERVATIONS_SQLITE_DSN",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: RESERVATIONS_TOKEN_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		t.Setenv("RESERVATIONS_TOKEN_SECRET", "secret-value")
		t.Setenv("RESERVATIONS_HTTP_PORT", "9090")
		t.Setenv("RESERVATIONS_SQLITE_DSN", "file:/tmp/reservations.db")
		t.Setenv("RESERVATIONS_TOKEN_TTL", "12h")
		t.Setenv("RESERVATIONS_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.TokenTTL != 12*time.Hour {
			t.Fatalf("expected token TTL 12h, got %s", cfg.TokenTTL)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/reservations.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
		}
	})

	t.Run("rejects invalid numeric values", func(t *testing.T) {
		t.Setenv("RESERVATIONS_TOKEN_SECRET", "secret-value")
		t.Setenv("RESERVATIONS_HTTP_PORT", "not-a-port")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid port")
		}
		expected := "invalid environment variable values: RESERVATIONS_HTTP_PORT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}
