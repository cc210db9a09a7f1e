// Package config provides host and CLI configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/runtime-ipc/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Config holds runtime-host configuration.
type Config struct {
	// COMMS: connect to a standalone server at COMMSURL unless EmbeddedCOMMS is set.
	COMMSURL          string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName         string `envconfig:"SERVICE_NAME" default:"runtime-host"`
	EmbeddedCOMMS     bool   `envconfig:"EMBEDDED_COMMS" default:"false"`
	EmbeddedCOMMSHost string `envconfig:"EMBEDDED_COMMS_HOST" default:"127.0.0.1"`
	EmbeddedCOMMSPort int    `envconfig:"EMBEDDED_COMMS_PORT" default:"4222"`

	// Subjects
	SubjectPrefix string `envconfig:"SUBJECT_PREFIX" default:"runtime.ipc"`

	// Timeouts
	SyncTimeout    time.Duration `envconfig:"SYNC_TIMEOUT" default:"5s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`

	// Handshake
	ProtocolRange string `envconfig:"PROTOCOL_RANGE" default:"^1.0.0"`

	// Journal database (empty DatabaseURL disables the Postgres journal)
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	RunMigrations    bool          `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath    string        `envconfig:"MIGRATION_PATH" default:"migrations"`
	JournalRetention time.Duration `envconfig:"JOURNAL_RETENTION" default:"0"`
	// JournalBuffer bounds the events queued ahead of the journal writers.
	JournalBuffer int `envconfig:"JOURNAL_BUFFER" default:"1024"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CLI client
	RoutingID int    `envconfig:"ROUTING_ID" default:"1"`
	Process   string `envconfig:"IPC_PROCESS" default:"runtime-cli"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// ValidateForServe checks required config when running the host.
func (c *Config) ValidateForServe() error {
	if c.SubjectPrefix == "" {
		return fmt.Errorf("%s - SUBJECT_PREFIX cannot be empty", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.JournalRetention < 0 {
		return fmt.Errorf("%s - JOURNAL_RETENTION cannot be negative", logPrefix)
	}
	if err := semver.ValidateRange(c.ProtocolRange); err != nil {
		return fmt.Errorf("%s - PROTOCOL_RANGE: %w", logPrefix, err)
	}
	return nil
}

// ValidateForClient checks required config for the send command.
func (c *Config) ValidateForClient() error {
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("%s - SYNC_TIMEOUT must be positive", logPrefix)
	}
	if c.Process == "" {
		return fmt.Errorf("%s - IPC_PROCESS cannot be empty", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, journal).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// JournalEnabled reports whether handled messages are persisted to Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
