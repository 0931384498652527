// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/pkg/logging"
)

// Config holds all application configuration.
type Config struct {
	Port int

	// DBDriver is "sqlite" or "postgres".
	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTSecret    string
	AuthRequired bool

	LogLevel  string
	LogFormat string

	ReconcileMaxRetries  int
	ShareRemainderPolicy calculator.RemainderPolicy
	RosterCacheTTL       time.Duration

	NudgeInterval    time.Duration
	NudgeMinGap      time.Duration
	DeliveryInterval time.Duration

	// SMTPAddr is empty when mail should only be logged.
	SMTPAddr string
	SMTPFrom string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		DBDriver:    strings.ToLower(env("DB_DRIVER", "sqlite")),
		DBPath:      env("DB_PATH", "./data/splitsettle.db"),
		DatabaseURL: env("DATABASE_URL", ""),
		JWTSecret:   env("JWT_SECRET", ""),
		LogLevel:    env("LOG_LEVEL", "info"),
		LogFormat:   env("LOG_FORMAT", "text"),
		SMTPAddr:    env("SMTP_ADDR", ""),
		SMTPFrom:    env("SMTP_FROM", "splitsettle@localhost"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(env("PORT", "8080")); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.AuthRequired, err = strconv.ParseBool(env("AUTH_REQUIRED", "false")); err != nil {
		return nil, fmt.Errorf("invalid AUTH_REQUIRED: %w", err)
	}
	if cfg.ReconcileMaxRetries, err = strconv.Atoi(env("RECONCILE_MAX_RETRIES", "5")); err != nil || cfg.ReconcileMaxRetries < 1 {
		return nil, fmt.Errorf("invalid RECONCILE_MAX_RETRIES %q", getenv("RECONCILE_MAX_RETRIES"))
	}
	cfg.ShareRemainderPolicy = calculator.ParseRemainderPolicy(strings.ToLower(env("SHARE_REMAINDER_POLICY", "")))

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"ROSTER_CACHE_TTL", "30s", &cfg.RosterCacheTTL},
		{"NUDGE_INTERVAL", "24h", &cfg.NudgeInterval},
		{"NUDGE_MIN_GAP", "1h", &cfg.NudgeMinGap},
		{"DELIVERY_INTERVAL", "1m", &cfg.DeliveryInterval},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(env(d.key, d.fallback)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.AuthRequired && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED=true")
	}

	return cfg, nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	return logging.ParseLevel(c.LogLevel)
}
