package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the citabot service.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	HTTP     HTTPConfig     `mapstructure:"http" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Clinic   ClinicConfig   `mapstructure:"clinic" validate:"required"`
	Survey   SurveyConfig   `mapstructure:"survey"`
	Session  SessionConfig  `mapstructure:"session"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// HTTPConfig configures the webhook HTTP server.
type HTTPConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`

	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

// RedisConfig configures the Redis connection shared by sessions, locks, and jobs.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	// File enables a rotating log file sink in addition to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// ClinicConfig holds the externally configurable conversation data:
// the service menu and the suggested availability slots.
type ClinicConfig struct {
	Name           string   `mapstructure:"name" validate:"required"`
	Services       []string `mapstructure:"services" validate:"required,min=1"`
	SuggestedSlots []string `mapstructure:"suggested_slots"`
}

// SurveyConfig controls the post-appointment satisfaction survey.
type SurveyConfig struct {
	// Delay after the appointment time at which the survey job fires.
	Delay time.Duration `mapstructure:"delay"`
}

// SessionConfig controls conversation session storage.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LimitsConfig controls the per-sender webhook rate limit.
type LimitsConfig struct {
	MessagesPerWindow int           `mapstructure:"messages_per_window"`
	Window            time.Duration `mapstructure:"window"`
}

// JobsConfig controls the asynq worker.
type JobsConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

func (c *Config) applyDefaults() {
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "migrations"
	}
	if c.Survey.Delay == 0 {
		c.Survey.Delay = time.Hour
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 72 * time.Hour
	}
	if c.Session.CleanupInterval == 0 {
		c.Session.CleanupInterval = time.Hour
	}
	if c.Limits.MessagesPerWindow == 0 {
		c.Limits.MessagesPerWindow = 20
	}
	if c.Limits.Window == 0 {
		c.Limits.Window = time.Minute
	}
	if c.Jobs.Concurrency == 0 {
		c.Jobs.Concurrency = 10
	}
}
