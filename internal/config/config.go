// Package config loads process configuration from the environment.
//
// Values are resolved from OS environment variables, optionally seeded from a
// .env file, parsed with envconfig struct tags and validated before use.
// Per-store settings live in scoped configuration instead; the Sync section
// only provides the process-wide fallbacks for them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config captures runtime configuration for the sync service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
	Sync        SyncConfig
	Transmitter TransmitterConfig
	Scheduler   SchedulerConfig
}

type HTTPConfig struct {
	Port          int    `envconfig:"API_HTTP_PORT" default:"8080" validate:"min=1,max=65535"`
	MetricsPath   string `envconfig:"API_METRICS_PATH" default:"/metrics" validate:"startswith=/"`
	ShutdownGrace int    `envconfig:"API_SHUTDOWN_GRACE_SECONDS" default:"15" validate:"min=0"`
}

type DatabaseConfig struct {
	URL            string `envconfig:"DATABASE_URL"`
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           string `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name           string `envconfig:"DB_NAME" default:"ordersync"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns       int    `envconfig:"DB_MAX_CONNS" default:"25" validate:"min=1"`
	MinConns       int    `envconfig:"DB_MIN_CONNS" default:"5" validate:"min=0"`
	MaxLifetime    string `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

type TelemetryConfig struct {
	LogLevel      string  `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	OTelEndpoint  string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTracing bool    `envconfig:"OTEL_ENABLE_TRACING" default:"true"`
	EnableMetrics bool    `envconfig:"OTEL_ENABLE_METRICS" default:"true"`
	SampleRate    float64 `envconfig:"OTEL_SAMPLE_RATE" default:"1.0" validate:"min=0,max=1"`
}

type ServiceConfig struct {
	Name        string `envconfig:"SERVICE_NAME" default:"ordersync" validate:"required"`
	Version     string `envconfig:"SERVICE_VERSION" default:"0.1.0" validate:"required"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// SyncConfig holds the fallbacks used when scoped configuration has no value.
type SyncConfig struct {
	Via                        string `envconfig:"SYNC_VIA" default:"cron"`
	PageSize                   int    `envconfig:"SYNC_PAGE_SIZE" default:"100" validate:"min=1"`
	MaxAttempts                int    `envconfig:"SYNC_MAX_ATTEMPTS" default:"1" validate:"min=1"`
	StuckThresholdMinutes      int    `envconfig:"SYNC_STUCK_THRESHOLD_MINUTES" default:"60" validate:"min=0"`
	HistoryRetentionSyncedDays int    `envconfig:"SYNC_HISTORY_RETENTION_SYNCED_DAYS" default:"0" validate:"min=0"`
	HistoryRetentionErrorDays  int    `envconfig:"SYNC_HISTORY_RETENTION_ERROR_DAYS" default:"0" validate:"min=0"`
	LegacyPageSize             int    `envconfig:"SYNC_LEGACY_PAGE_SIZE" default:"500" validate:"min=1"`
	EnabledByDefault           bool   `envconfig:"SYNC_ENABLED_BY_DEFAULT" default:"false"`
}

// TransmitterConfig configures delivery to the analytics endpoint.
type TransmitterConfig struct {
	Endpoint         string        `envconfig:"ANALYTICS_ENDPOINT" validate:"omitempty,url"`
	APIKey           string        `envconfig:"ANALYTICS_API_KEY"`
	Timeout          time.Duration `envconfig:"ANALYTICS_TIMEOUT" default:"10s"`
	MaxRetries       uint          `envconfig:"ANALYTICS_MAX_RETRIES" default:"3"`
	BreakerThreshold uint32        `envconfig:"ANALYTICS_BREAKER_THRESHOLD" default:"5" validate:"min=1"`
	BreakerCooldown  time.Duration `envconfig:"ANALYTICS_BREAKER_COOLDOWN" default:"30s"`
	UserAgent        string        `envconfig:"ANALYTICS_USER_AGENT" default:"ordersync/1.0"`
}

// SchedulerConfig sets how often each scheduled job runs. Zero disables a job.
type SchedulerConfig struct {
	QueueInterval     time.Duration `envconfig:"SCHEDULER_QUEUE_INTERVAL" default:"1m"`
	RequeueInterval   time.Duration `envconfig:"SCHEDULER_REQUEUE_INTERVAL" default:"15m"`
	RetentionInterval time.Duration `envconfig:"SCHEDULER_RETENTION_INTERVAL" default:"24h"`
}

// Load reads configuration from the environment, applying defaults when needed.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildDatabaseURL(cfg.Database)
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SlogLevel maps the configured log level onto slog.
func (c TelemetryConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func buildDatabaseURL(db DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d&pool_max_conn_lifetime=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode, db.MaxConns, db.MinConns, db.MaxLifetime,
	)
}
