// Package config defines the top-level configuration for the smart
// execution router and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SMARTROUTER_* environment
// variables.
type Config struct {
	Router     RouterConfig     `toml:"router"`
	Splitter   SplitterConfig   `toml:"splitter"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Venues     VenuesConfig     `toml:"venues"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// RouterConfig holds the decision thresholds and executor defaults.
type RouterConfig struct {
	SmallOrderThresholdUSD     float64  `toml:"small_order_threshold_usd"`
	LargeOrderThresholdUSD     float64  `toml:"large_order_threshold_usd"`
	ImpactThreshold            float64  `toml:"impact_threshold"`
	ImpactCoefficient          float64  `toml:"impact_coefficient"`
	DefaultTWAPIntervalSeconds int      `toml:"default_twap_interval_seconds"`
	DefaultTWAPDurationMinutes int      `toml:"default_twap_duration_minutes"`
	ParticipationRate          float64  `toml:"participation_rate"`
	VWAPSubIntervals           int      `toml:"vwap_sub_intervals"`
	LegTimeout                 duration `toml:"leg_timeout"`
	JitterFraction             float64  `toml:"jitter_fraction"`
	DedupWindow                duration `toml:"dedup_window"`
}

// SplitterConfig holds the order-splitting constraints.
type SplitterConfig struct {
	MaxLegs        int     `toml:"max_legs"`
	MinLegValueUSD float64 `toml:"min_leg_value_usd"`
}

// AggregatorConfig holds book-aggregation parameters.
type AggregatorConfig struct {
	Depth        int      `toml:"depth"`
	FetchTimeout duration `toml:"fetch_timeout"`
}

// VenueConfig describes one venue: its adapter mode and reference data.
type VenueConfig struct {
	Name          string  `toml:"name"`
	Mode          string  `toml:"mode"` // "sim" or "rest"
	BaseURL       string  `toml:"base_url"`
	APIKey        string  `toml:"api_key"`
	MakerFee      float64 `toml:"maker_fee"`
	TakerFee      float64 `toml:"taker_fee"`
	MinOrderValue float64 `toml:"min_order_value"`
	LatencyMs     int     `toml:"latency_ms"`

	// Sim-mode shape parameters.
	BasePrice   float64 `toml:"base_price"`
	SpreadBps   float64 `toml:"spread_bps"`
	DepthLevels int     `toml:"depth_levels"`
	LevelSize   float64 `toml:"level_size"`
	FailureRate float64 `toml:"failure_rate"`
}

// VenuesConfig is the list of configured venues.
type VenuesConfig struct {
	Venues []VenueConfig `toml:"venue"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// cache layer entirely.
type RedisConfig struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// PostgresConfig holds the audit-store connection parameters. An empty DSN
// with an empty Host disables persistence.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds object-storage parameters for the execution archiver. An
// empty Bucket disables archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Prefix         string `toml:"prefix"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration a TOML file is merged over.
func Defaults() Config {
	return Config{
		Router: RouterConfig{
			SmallOrderThresholdUSD:     10_000,
			LargeOrderThresholdUSD:     250_000,
			ImpactThreshold:            0.02,
			ImpactCoefficient:          0.1,
			DefaultTWAPIntervalSeconds: 60,
			DefaultTWAPDurationMinutes: 10,
			ParticipationRate:          0.10,
			VWAPSubIntervals:           4,
			LegTimeout:                 duration{10 * time.Second},
			JitterFraction:             0.20,
			DedupWindow:                duration{2 * time.Second},
		},
		Splitter: SplitterConfig{
			MaxLegs:        10,
			MinLegValueUSD: 100,
		},
		Aggregator: AggregatorConfig{
			Depth:        10,
			FetchTimeout: duration{2 * time.Second},
		},
		Redis: RedisConfig{
			DB:          0,
			PoolSize:    10,
			SnapshotTTL: duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 4,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would break
// routing at runtime.
func (c *Config) Validate() error {
	var problems []string

	if c.Router.SmallOrderThresholdUSD <= 0 {
		problems = append(problems, "router.small_order_threshold_usd must be positive")
	}
	if c.Router.LargeOrderThresholdUSD <= c.Router.SmallOrderThresholdUSD {
		problems = append(problems, "router.large_order_threshold_usd must exceed the small-order threshold")
	}
	if c.Router.ImpactThreshold <= 0 || c.Router.ImpactThreshold >= 1 {
		problems = append(problems, "router.impact_threshold must be in (0, 1)")
	}
	if c.Router.ParticipationRate <= 0 || c.Router.ParticipationRate > 1 {
		problems = append(problems, "router.participation_rate must be in (0, 1]")
	}
	if c.Router.JitterFraction < 0 || c.Router.JitterFraction >= 1 {
		problems = append(problems, "router.jitter_fraction must be in [0, 1)")
	}
	if c.Splitter.MaxLegs <= 0 {
		problems = append(problems, "splitter.max_legs must be positive")
	}
	if len(c.Venues.Venues) == 0 {
		problems = append(problems, "at least one [[venues.venue]] must be configured")
	}
	seen := make(map[string]bool)
	for _, v := range c.Venues.Venues {
		if strings.TrimSpace(v.Name) == "" {
			problems = append(problems, "venue with empty name")
			continue
		}
		if seen[v.Name] {
			problems = append(problems, fmt.Sprintf("duplicate venue %q", v.Name))
		}
		seen[v.Name] = true
		switch v.Mode {
		case "sim", "":
		case "rest":
			if v.BaseURL == "" {
				problems = append(problems, fmt.Sprintf("venue %q: rest mode requires base_url", v.Name))
			}
		default:
			problems = append(problems, fmt.Sprintf("venue %q: unknown mode %q", v.Name, v.Mode))
		}
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port out of range")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
