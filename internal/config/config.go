package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage type constants for the chat history backend
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Config holds all tunables consumed by the hub. Defaults are documented on
// Default; every field can be overridden through the environment.
type Config struct {
	// HTTP listen address
	Host string
	Port int

	// ConnectionCap is the maximum live connections one identity may hold.
	// The next connection beyond the cap is closed right after it identifies.
	ConnectionCap int

	// Per-address admission control: more than RateLimitAttempts connection
	// attempts inside RateLimitWindow blocks the address for RateLimitBlock.
	RateLimitAttempts int
	RateLimitWindow   time.Duration
	RateLimitBlock    time.Duration

	// ReaperPeriod is how often the background sweep runs
	ReaperPeriod time.Duration
	// Retention is how long an inactive, connectionless binding survives
	// before the sweep evicts it
	Retention time.Duration
	// ConflictGrace is how long a claimed player id must have been inactive
	// before a colliding claim from an unknown fingerprint is honored.
	// Deliberately independent of Retention.
	ConflictGrace time.Duration

	// PresenceCap bounds the entries in one presence broadcast
	PresenceCap int

	// ChatHistory bounds the replayed chat backlog
	ChatHistory int

	// Chat history backend: "memory" or "redis"
	StorageType string
	RedisURL    string

	// AllowedOrigins for the websocket upgrade; empty allows any origin
	AllowedOrigins []string
}

// Default returns the documented default configuration: 5 connections per
// identity, 20 attempts per 60s with a 120s block, hourly sweeps, 24h
// retention, 7 day conflict grace, 100 presence entries.
func Default() Config {
	return Config{
		Host:              "",
		Port:              8080,
		ConnectionCap:     5,
		RateLimitAttempts: 20,
		RateLimitWindow:   60 * time.Second,
		RateLimitBlock:    120 * time.Second,
		ReaperPeriod:      time.Hour,
		Retention:         24 * time.Hour,
		ConflictGrace:     7 * 24 * time.Hour,
		PresenceCap:       100,
		ChatHistory:       50,
		StorageType:       StorageTypeMemory,
		RedisURL:          "",
		AllowedOrigins:    nil,
	}
}

// FromEnv builds a Config from environment variables, starting from Default.
// Durations use Go duration syntax (e.g. "90s", "1h30m").
func FromEnv() (Config, error) {
	cfg := Default()

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return cfg, err
	}
	cfg.Host = envString("HOST", cfg.Host)

	if cfg.ConnectionCap, err = envInt("CONNECTION_CAP", cfg.ConnectionCap); err != nil {
		return cfg, err
	}
	if cfg.RateLimitAttempts, err = envInt("RATE_LIMIT_ATTEMPTS", cfg.RateLimitAttempts); err != nil {
		return cfg, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow); err != nil {
		return cfg, err
	}
	if cfg.RateLimitBlock, err = envDuration("RATE_LIMIT_BLOCK", cfg.RateLimitBlock); err != nil {
		return cfg, err
	}
	if cfg.ReaperPeriod, err = envDuration("REAPER_PERIOD", cfg.ReaperPeriod); err != nil {
		return cfg, err
	}
	if cfg.Retention, err = envDuration("RETENTION", cfg.Retention); err != nil {
		return cfg, err
	}
	if cfg.ConflictGrace, err = envDuration("CONFLICT_GRACE", cfg.ConflictGrace); err != nil {
		return cfg, err
	}
	if cfg.PresenceCap, err = envInt("PRESENCE_CAP", cfg.PresenceCap); err != nil {
		return cfg, err
	}
	if cfg.ChatHistory, err = envInt("CHAT_HISTORY", cfg.ChatHistory); err != nil {
		return cfg, err
	}

	cfg.StorageType = envString("STORAGE_TYPE", cfg.StorageType)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ConnectionCap < 1 {
		return fmt.Errorf("connection cap must be at least 1, got %d", c.ConnectionCap)
	}
	if c.RateLimitAttempts < 1 {
		return fmt.Errorf("rate limit attempts must be at least 1, got %d", c.RateLimitAttempts)
	}
	if c.StorageType != StorageTypeMemory && c.StorageType != StorageTypeRedis {
		return fmt.Errorf("storage type must be %q or %q, got %q", StorageTypeMemory, StorageTypeRedis, c.StorageType)
	}
	if c.StorageType == StorageTypeRedis && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL required when STORAGE_TYPE=%s", StorageTypeRedis)
	}
	return nil
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
