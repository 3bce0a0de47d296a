package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the warden moderation service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	AllowAnyOrigin   bool

	DiscordToken string

	// Snowflake identifiers. Empty (or "0") disables the corresponding
	// feature path instead of erroring.
	HoneypotChannelID string
	QuarantineRoleID  string
	StaffRoleID       string

	SimilarityThreshold float64
	ChannelThreshold    int
	MinMessageLength    int
	HistoryRetention    time.Duration
	SweepInterval       time.Duration
	SweepInitialDelay   time.Duration
	PurgeWindow         time.Duration

	AuditDatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("WARDEN_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("WARDEN_METRICS_NAMESPACE", "warden"),
		DiscordToken:        trimmedEnv("DISCORD_TOKEN"),
		HoneypotChannelID:   idFromEnv("WARDEN_HONEYPOT_CHANNEL_ID"),
		QuarantineRoleID:    idFromEnv("WARDEN_QUARANTINE_ROLE_ID"),
		StaffRoleID:         idFromEnv("WARDEN_STAFF_ROLE_ID"),
		AuditDatabaseURL:    trimmedEnv("AUDIT_DATABASE_URL"),
		SimilarityThreshold: 0.85,
		ChannelThreshold:    3,
		MinMessageLength:    20,
		HistoryRetention:    time.Hour,
		SweepInterval:       5 * time.Minute,
		SweepInitialDelay:   time.Minute,
		PurgeWindow:         time.Hour,
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.SimilarityThreshold, err = floatFromEnv("WARDEN_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ChannelThreshold, err = intFromEnv("WARDEN_CHANNEL_THRESHOLD", cfg.ChannelThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.MinMessageLength, err = intFromEnv("WARDEN_MIN_MESSAGE_LENGTH", cfg.MinMessageLength)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryRetention, err = durationFromEnv("WARDEN_HISTORY_RETENTION", cfg.HistoryRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("WARDEN_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInitialDelay, err = durationFromEnv("WARDEN_SWEEP_INITIAL_DELAY", cfg.SweepInitialDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.PurgeWindow, err = durationFromEnv("WARDEN_PURGE_WINDOW", cfg.PurgeWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("WARDEN_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("WARDEN_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		return Config{}, fmt.Errorf("WARDEN_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if cfg.ChannelThreshold < 1 {
		return Config{}, fmt.Errorf("WARDEN_CHANNEL_THRESHOLD must be positive")
	}
	if cfg.MinMessageLength < 0 {
		return Config{}, fmt.Errorf("WARDEN_MIN_MESSAGE_LENGTH must be >= 0")
	}
	if cfg.HistoryRetention <= 0 {
		return Config{}, fmt.Errorf("WARDEN_HISTORY_RETENTION must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("WARDEN_SWEEP_INTERVAL must be positive")
	}
	if cfg.SweepInitialDelay < 0 {
		return Config{}, fmt.Errorf("WARDEN_SWEEP_INITIAL_DELAY must be >= 0")
	}
	if cfg.PurgeWindow <= 0 {
		return Config{}, fmt.Errorf("WARDEN_PURGE_WINDOW must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// idFromEnv reads a snowflake identifier. The literal "0" is treated the
// same as unset: the feature path using the identifier stays disabled.
func idFromEnv(key string) string {
	v := trimmedEnv(key)
	if v == "0" {
		return ""
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid boolean %q", key, v)
	}
}
