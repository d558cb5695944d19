package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SMARTROUTER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SMARTROUTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Router ──
	setFloat64(&cfg.Router.SmallOrderThresholdUSD, "SMARTROUTER_ROUTER_SMALL_ORDER_THRESHOLD_USD")
	setFloat64(&cfg.Router.LargeOrderThresholdUSD, "SMARTROUTER_ROUTER_LARGE_ORDER_THRESHOLD_USD")
	setFloat64(&cfg.Router.ImpactThreshold, "SMARTROUTER_ROUTER_IMPACT_THRESHOLD")
	setFloat64(&cfg.Router.ImpactCoefficient, "SMARTROUTER_ROUTER_IMPACT_COEFFICIENT")
	setInt(&cfg.Router.DefaultTWAPIntervalSeconds, "SMARTROUTER_ROUTER_DEFAULT_TWAP_INTERVAL_SECONDS")
	setInt(&cfg.Router.DefaultTWAPDurationMinutes, "SMARTROUTER_ROUTER_DEFAULT_TWAP_DURATION_MINUTES")
	setFloat64(&cfg.Router.ParticipationRate, "SMARTROUTER_ROUTER_PARTICIPATION_RATE")
	setFloat64(&cfg.Router.JitterFraction, "SMARTROUTER_ROUTER_JITTER_FRACTION")
	setDuration(&cfg.Router.DedupWindow, "SMARTROUTER_ROUTER_DEDUP_WINDOW")

	// ── Splitter ──
	setInt(&cfg.Splitter.MaxLegs, "SMARTROUTER_SPLITTER_MAX_LEGS")
	setFloat64(&cfg.Splitter.MinLegValueUSD, "SMARTROUTER_SPLITTER_MIN_LEG_VALUE_USD")

	// ── Aggregator ──
	setInt(&cfg.Aggregator.Depth, "SMARTROUTER_AGGREGATOR_DEPTH")
	setDuration(&cfg.Aggregator.FetchTimeout, "SMARTROUTER_AGGREGATOR_FETCH_TIMEOUT")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SMARTROUTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SMARTROUTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SMARTROUTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SMARTROUTER_REDIS_POOL_SIZE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SMARTROUTER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SMARTROUTER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SMARTROUTER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SMARTROUTER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SMARTROUTER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SMARTROUTER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SMARTROUTER_POSTGRES_SSL_MODE")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SMARTROUTER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SMARTROUTER_S3_REGION")
	setStr(&cfg.S3.Bucket, "SMARTROUTER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SMARTROUTER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SMARTROUTER_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "SMARTROUTER_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SMARTROUTER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SMARTROUTER_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SMARTROUTER_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SMARTROUTER_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SMARTROUTER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
