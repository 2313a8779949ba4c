package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// Config holds all process configuration.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Dashboard     DashboardConfig     `yaml:"dashboard"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the read-side HTTP API configuration.
type HTTPConfig struct {
	Address        string  `yaml:"address"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// ObservabilityConfig holds logging/metrics configuration.
type ObservabilityConfig struct {
	Environment string `yaml:"environment"`
}

// DashboardConfig holds the engagement dashboard tunables.
type DashboardConfig struct {
	Weights               dashboardtypes.EngagementWeights `yaml:"weights"`
	MinMessagesForScoring int64                            `yaml:"min_messages_for_scoring"`
	MinTenureDaysAtRisk   int64                            `yaml:"min_tenure_days_at_risk"`
	TopN                  int                              `yaml:"top_n"`
	AtRiskN               int                              `yaml:"at_risk_n"`
	IdleGapSeconds        int                              `yaml:"idle_gap_seconds"`
	MaxIntervalSeconds    int                              `yaml:"max_interval_seconds"`
	MaxEntitySpots        int                              `yaml:"max_entity_spots"`
	SnapshotBucket        string                           `yaml:"snapshot_bucket"`
}

// Enforced floors and defaults for the refresh scheduler.
const (
	minIdleGapSeconds     = 30
	minMaxIntervalSeconds = 60

	defaultTopN           = 10
	defaultAtRiskN        = 5
	defaultMaxEntitySpots = 1000
	defaultHTTPAddress    = ":8080"
	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 10
)

// IdleGap returns the validated idle gap duration.
func (c DashboardConfig) IdleGap() time.Duration {
	return time.Duration(c.IdleGapSeconds) * time.Second
}

// MaxInterval returns the validated max refresh interval.
func (c DashboardConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalSeconds) * time.Second
}

// LoadConfig loads configuration from a YAML file, falling back to
// environment variables when the file is missing. Env vars override file
// values either way. The returned config is already validated.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN not configured (set postgres.dsn or DATABASE_URL)")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS URL not configured (set nats.url or NATS_URL)")
	}

	cfg.validate()
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("DASHBOARD_TENURE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dashboard.Weights.Tenure = f
		}
	}
	if v := os.Getenv("DASHBOARD_MESSAGE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dashboard.Weights.Message = f
		}
	}
	if v := os.Getenv("DASHBOARD_VOICE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dashboard.Weights.Voice = f
		}
	}
	if v := os.Getenv("DASHBOARD_IDLE_GAP_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.IdleGapSeconds = n
		}
	}
	if v := os.Getenv("DASHBOARD_MAX_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.MaxIntervalSeconds = n
		}
	}
	if v := os.Getenv("DASHBOARD_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.TopN = n
		}
	}
	if v := os.Getenv("DASHBOARD_MAX_ENTITY_SPOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.MaxEntitySpots = n
		}
	}
}

// validate corrects recoverable configuration problems in place. Weight
// errors and threshold floors warn instead of failing; a misconfigured
// dashboard should degrade, not prevent ingestion.
func (cfg *Config) validate() {
	d := &cfg.Dashboard

	if normalized, corrected := d.Weights.Normalize(); corrected {
		slog.Warn("Dashboard weights did not sum to 1.0, renormalized",
			slog.Float64("sum", d.Weights.Sum()),
		)
		d.Weights = normalized
	}

	if d.IdleGapSeconds < minIdleGapSeconds {
		slog.Warn("idle_gap_seconds below floor, clamping",
			slog.Int("configured", d.IdleGapSeconds),
			slog.Int("floor", minIdleGapSeconds),
		)
		d.IdleGapSeconds = minIdleGapSeconds
	}
	if d.MaxIntervalSeconds < minMaxIntervalSeconds {
		slog.Warn("max_interval_seconds below floor, clamping",
			slog.Int("configured", d.MaxIntervalSeconds),
			slog.Int("floor", minMaxIntervalSeconds),
		)
		d.MaxIntervalSeconds = minMaxIntervalSeconds
	}

	if d.TopN <= 0 {
		d.TopN = defaultTopN
	}
	if d.AtRiskN <= 0 {
		d.AtRiskN = defaultAtRiskN
	}
	if d.MaxEntitySpots <= 0 {
		d.MaxEntitySpots = defaultMaxEntitySpots
	}
	if d.SnapshotBucket == "" {
		d.SnapshotBucket = "dashboards"
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = defaultHTTPAddress
	}
	if cfg.HTTP.RateLimitRPS <= 0 {
		cfg.HTTP.RateLimitRPS = defaultRateLimitRPS
	}
	if cfg.HTTP.RateLimitBurst <= 0 {
		cfg.HTTP.RateLimitBurst = defaultRateLimitBurst
	}
}
