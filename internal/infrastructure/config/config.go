package config

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// API holds Intelligems API configuration.
type API struct {
	Key     string `envconfig:"INTELLIGEMS_API_KEY" required:"true"`
	BaseURL string `envconfig:"INTELLIGEMS_BASE_URL" default:"https://api.intelligems.io/v25-10-beta"`
}

// Database holds Turso database configuration. Reports are only
// persisted when a URL is configured.
type Database struct {
	URL       string `envconfig:"TURSO_DATABASE_URL"`
	AuthToken string `envconfig:"TURSO_AUTH_TOKEN"`
}

// Slack holds the default webhook destination. The --slack flag
// overrides it per invocation.
type Slack struct {
	WebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
}

// Telemetry holds OTEL exporter configuration.
type Telemetry struct {
	Enabled  bool   `envconfig:"LIFTWATCH_OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"LIFTWATCH_OTEL_ENDPOINT"`
	Insecure bool   `envconfig:"LIFTWATCH_OTEL_INSECURE" default:"false"`
}

// Decision holds the analysis thresholds, all overridable from the
// environment.
type Decision struct {
	MinConfidence     float64 `envconfig:"LIFTWATCH_MIN_CONFIDENCE" default:"0.80"`
	NeutralLiftBand   float64 `envconfig:"LIFTWATCH_NEUTRAL_LIFT_BAND" default:"0.02"`
	FlatAfterDays     int     `envconfig:"LIFTWATCH_FLAT_AFTER_DAYS" default:"21"`
	MinRuntimeDays    int     `envconfig:"LIFTWATCH_MIN_RUNTIME_DAYS" default:"10"`
	MinOrders         int64   `envconfig:"LIFTWATCH_MIN_ORDERS" default:"30"`
	MinVisitors       int64   `envconfig:"LIFTWATCH_MIN_VISITORS" default:"100"`
	SignalDeadZone    float64 `envconfig:"LIFTWATCH_SIGNAL_DEAD_ZONE" default:"0.005"`
	ContradictionBand float64 `envconfig:"LIFTWATCH_CONTRADICTION_BAND" default:"0.02"`
	AssumedCAC        float64 `envconfig:"LIFTWATCH_ASSUMED_CAC" default:"40"`
}

// Config is the full application configuration.
type Config struct {
	API       API
	Database  Database
	Slack     Slack
	Telemetry Telemetry
	Decision  Decision
}

// Load reads configuration from environment variables and validates
// the decision thresholds.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg.API); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Slack); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Telemetry); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Decision); err != nil {
		return nil, err
	}
	if err := cfg.Thresholds().Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Thresholds converts the decision settings to the domain type.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		MinConfidence:            c.Decision.MinConfidence,
		NeutralLiftBand:          c.Decision.NeutralLiftBand,
		FlatAfterDays:            c.Decision.FlatAfterDays,
		MinRuntimeDays:           c.Decision.MinRuntimeDays,
		MinOrders:                c.Decision.MinOrders,
		MinVisitors:              c.Decision.MinVisitors,
		SignalDeadZone:           c.Decision.SignalDeadZone,
		SegmentContradictionBand: c.Decision.ContradictionBand,
		AssumedCAC:               c.Decision.AssumedCAC,
	}
}
