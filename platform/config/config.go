// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetInactivitySweepInterval() time.Duration
}

// IngestionConfig provides settings for the activity ingestion boundary.
type IngestionConfig interface {
	GetClockSkewTolerance() time.Duration
}

// StatusEngineConfig provides settings for the lead status engine.
type StatusEngineConfig interface {
	// GetInactivityWindows maps a lead status to the idle duration after
	// which the contact is demoted to dormant. Statuses with no entry are
	// never demoted by the sweep.
	GetInactivityWindows() map[string]time.Duration
	// GetAbandonedThreshold is the idle duration after which a dormant
	// contact is demoted to abandoned.
	GetAbandonedThreshold() time.Duration
}

// NotifierConfig provides settings for the contact card change notifier.
type NotifierConfig interface {
	GetRedisURL() string
	GetChangeDebounceWindow() time.Duration
}

// SignalsConfig provides settings for key signal surfacing.
type SignalsConfig interface {
	// GetSignalSeverityThreshold is the minimum severity that must always
	// appear in assembled views until resolved or expired.
	GetSignalSeverityThreshold() int
}

// ContactsConfig provides settings for contact identity resolution.
type ContactsConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	InactivitySweepInterval time.Duration
	ClockSkewTolerance      time.Duration
	InactivityWindows       map[string]time.Duration
	AbandonedThreshold      time.Duration
	ChangeDebounceWindow    time.Duration
	SignalSeverityThreshold int
	DefaultPhoneRegion      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                   { return c.AsynqConcurrency }
func (c *Config) GetInactivitySweepInterval() time.Duration  { return c.InactivitySweepInterval }

// IngestionConfig implementation
func (c *Config) GetClockSkewTolerance() time.Duration { return c.ClockSkewTolerance }

// StatusEngineConfig implementation
func (c *Config) GetInactivityWindows() map[string]time.Duration { return c.InactivityWindows }
func (c *Config) GetAbandonedThreshold() time.Duration           { return c.AbandonedThreshold }

// NotifierConfig implementation
func (c *Config) GetChangeDebounceWindow() time.Duration { return c.ChangeDebounceWindow }

// SignalsConfig implementation
func (c *Config) GetSignalSeverityThreshold() int { return c.SignalSeverityThreshold }

// ContactsConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		InactivitySweepInterval: mustDuration(getEnv("INACTIVITY_SWEEP_INTERVAL", "1h")),
		ClockSkewTolerance:      mustDuration(getEnv("CLOCK_SKEW_TOLERANCE", "5m")),
		InactivityWindows:       loadInactivityWindows(),
		AbandonedThreshold:      mustDuration(getEnv("ABANDONED_THRESHOLD", "1440h")), // 60 days
		ChangeDebounceWindow:    mustDuration(getEnv("CHANGE_DEBOUNCE_WINDOW", "2s")),
		SignalSeverityThreshold: mustInt(getEnv("SIGNAL_SEVERITY_THRESHOLD", "3")),
		DefaultPhoneRegion:      getEnv("DEFAULT_PHONE_REGION", "NL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// loadInactivityWindows reads the per-status demotion windows. Statuses
// without a window are never demoted by the sweep; the defaults are tuned
// per deployment. An unparsable or non-positive value drops the window
// entirely: a broken setting must disable the demotion, not fire it
// immediately.
func loadInactivityWindows() map[string]time.Duration {
	raw := map[string]string{
		"new":         getEnv("INACTIVITY_WINDOW_NEW", "336h"),         // 14 days
		"nurturing":   getEnv("INACTIVITY_WINDOW_NURTURING", "720h"),   // 30 days
		"warm":        getEnv("INACTIVITY_WINDOW_WARM", "168h"),        // 7 days
		"hot":         getEnv("INACTIVITY_WINDOW_HOT", "120h"),         // 5 days
		"no_show":     getEnv("INACTIVITY_WINDOW_NO_SHOW", "336h"),     // 14 days
		"rescheduled": getEnv("INACTIVITY_WINDOW_RESCHEDULED", "336h"), // 14 days
	}

	windows := make(map[string]time.Duration, len(raw))
	for status, value := range raw {
		if d := mustDuration(value); d > 0 {
			windows[status] = d
		}
	}
	return windows
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
