// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and PULSE_* environment variables on top.
// - Validate reports problems wrapped with ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Theme assignment strategies.
const (
	ThemeStrategyFirst = "first"
	ThemeStrategyBest  = "best"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// MigrationsAuto applies pending migrations on boot.
	MigrationsAuto bool `koanf:"migrations_auto"`

	// Redis backs the rate limiter when RedisAddr is set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// JWTSecret signs team tokens.
	JWTSecret     string `koanf:"jwt_secret"`
	JWTTTLMinutes int    `koanf:"jwt_ttl_minutes"`

	// Per-window request limits. Zero disables limiting for that route.
	LoginRateLimit    int `koanf:"login_rate_limit"`
	FeedbackRateLimit int `koanf:"feedback_rate_limit"`
	RateWindowSeconds int `koanf:"rate_window_seconds"`

	// NATSURL enables event publishing to NATS; empty logs events instead.
	NATSURL           string `koanf:"nats_url"`
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// WorkerCount sets the number of event publishing workers.
	WorkerCount int `koanf:"worker_count"`

	// ThemesFile optionally replaces the built-in theme dictionary.
	ThemesFile    string `koanf:"themes_file"`
	ThemeStrategy string `koanf:"theme_strategy"`

	// DefaultPerRater is the fan-out used when a request does not name one.
	DefaultPerRater int `koanf:"default_per_rater"`

	// Seed* create a team at boot when SeedTeamCode is set. SeedPlayers is comma separated.
	SeedTeamName       string `koanf:"seed_team_name"`
	SeedTeamCode       string `koanf:"seed_team_code"`
	SeedTeamCredential string `koanf:"seed_team_credential"`
	SeedPlayers        string `koanf:"seed_players"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		Store:             StoreMemory,
		JWTSecret:         "change-me",
		JWTTTLMinutes:     480,
		LoginRateLimit:    10,
		FeedbackRateLimit: 60,
		RateWindowSeconds: 60,
		NATSSubjectPrefix: "pulse",
		EventQueueSize:    1024,
		WorkerCount:       max(2, runtime.NumCPU()/2),
		ThemeStrategy:     ThemeStrategyFirst,
		DefaultPerRater:   2,
	}
}

// JWTTTL returns the token lifetime.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// SeedPlayerNames splits SeedPlayers on commas, dropping blanks.
func (c *Config) SeedPlayerNames() []string {
	var names []string
	for _, n := range strings.Split(c.SeedPlayers, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// RateWindow returns the limiter window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// Validate checks the configuration and normalizes clamped values.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.ThemeStrategy = strings.ToLower(strings.TrimSpace(c.ThemeStrategy))

	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("%w: jwt_ttl_minutes must be positive", ErrInvalidConfig)
	}
	switch c.ThemeStrategy {
	case ThemeStrategyFirst, ThemeStrategyBest:
	default:
		return fmt.Errorf("%w: unknown theme_strategy %q", ErrInvalidConfig, c.ThemeStrategy)
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("%w: event_queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.RateWindowSeconds <= 0 {
		c.RateWindowSeconds = 60
	}
	c.DefaultPerRater = min(max(c.DefaultPerRater, 1), 3)
	if c.SeedTeamCode != "" && c.SeedTeamCredential == "" {
		return fmt.Errorf("%w: seed_team_credential is required with seed_team_code", ErrInvalidConfig)
	}
	if c.SeedTeamName == "" {
		c.SeedTeamName = c.SeedTeamCode
	}
	return nil
}
