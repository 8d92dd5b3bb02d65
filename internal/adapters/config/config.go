package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"whalescan/pkg/errors"
)

type Config struct {
	App           AppConfig
	Explorer      ExplorerConfig
	Analysis      AnalysisConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"whalescan"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// ExplorerConfig tunes the explorer API client. The API key itself is read
// per chain profile so multiple explorers can coexist.
type ExplorerConfig struct {
	RateLimitPerSec float64       `envconfig:"EXPLORER_RATE_LIMIT_PER_SEC" default:"5"`
	HTTPTimeout     time.Duration `envconfig:"EXPLORER_HTTP_TIMEOUT" default:"10s"`

	RetryMaxAttempts int           `envconfig:"EXPLORER_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"EXPLORER_RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay    time.Duration `envconfig:"EXPLORER_RETRY_MAX_DELAY" default:"10s"`
}

type AnalysisConfig struct {
	MaxConcurrency int `envconfig:"ANALYSIS_MAX_CONCURRENCY" default:"4"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background workers. Defaults are
// conservative because every sweep spends free-tier explorer API quota.
type WorkerConfig struct {
	MovementMonitorInterval  time.Duration `envconfig:"WORKER_MOVEMENT_MONITOR_INTERVAL" default:"10m"`
	MovementMonitorEnabled   bool          `envconfig:"WORKER_MOVEMENT_MONITOR_ENABLED" default:"true"`
	MovementMonitorThreshold string        `envconfig:"WORKER_MOVEMENT_MONITOR_THRESHOLD" default:"100"` // native units
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
