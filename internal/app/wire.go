package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/quantbot/smartrouter/internal/blob/s3"
	"github.com/quantbot/smartrouter/internal/book"
	"github.com/quantbot/smartrouter/internal/cache/redis"
	"github.com/quantbot/smartrouter/internal/config"
	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/estimator"
	"github.com/quantbot/smartrouter/internal/router"
	"github.com/quantbot/smartrouter/internal/splitter"
	"github.com/quantbot/smartrouter/internal/store/postgres"
	"github.com/quantbot/smartrouter/internal/venue"
	"github.com/quantbot/smartrouter/internal/venue/rest"
	"github.com/quantbot/smartrouter/internal/venue/sim"
)

// Dependencies bundles everything the application needs to serve routes. It
// is constructed by Wire and torn down by the returned cleanup function.
// Store, BookCache, ProfileCache, and Archiver are nil when the backing
// service is not configured; the router and API degrade gracefully.
type Dependencies struct {
	Registry   *venue.Registry
	Aggregator *book.Aggregator
	Estimator  *estimator.Estimator
	Splitter   *splitter.Splitter
	Stats      *router.Stats
	Router     *router.Router

	Store        domain.ExecutionStore
	BookCache    domain.BookCache
	ProfileCache domain.ProfileCache
	Archiver     domain.Archiver
}

// Wire constructs the full dependency graph from configuration. The cleanup
// function closes external connections in reverse construction order and is
// safe to call exactly once.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	agg := book.NewAggregator(registry, book.Config{
		Depth:        cfg.Aggregator.Depth,
		FetchTimeout: cfg.Aggregator.FetchTimeout.Duration,
	}, logger)

	est := estimator.New(cfg.Router.ImpactCoefficient).WithProfiles(registry)

	split := splitter.New(splitter.Config{
		MinLegValue: cfg.Splitter.MinLegValueUSD,
		MaxLegs:     cfg.Splitter.MaxLegs,
	}).WithProfiles(registry)

	stats := router.NewStats()

	rt := router.New(agg, est, split, registry, router.Config{
		SmallOrderThresholdUSD: cfg.Router.SmallOrderThresholdUSD,
		LargeOrderThresholdUSD: cfg.Router.LargeOrderThresholdUSD,
		ImpactThreshold:        cfg.Router.ImpactThreshold,
		TWAPInterval:           time.Duration(cfg.Router.DefaultTWAPIntervalSeconds) * time.Second,
		TWAPBaseDuration:       time.Duration(cfg.Router.DefaultTWAPDurationMinutes) * time.Minute,
		VWAPSubIntervals:       cfg.Router.VWAPSubIntervals,
		ParticipationRate:      cfg.Router.ParticipationRate,
		LegTimeout:             cfg.Router.LegTimeout.Duration,
		JitterFraction:         cfg.Router.JitterFraction,
		DedupWindow:            cfg.Router.DedupWindow.Duration,
	}, stats, logger)

	deps := &Dependencies{
		Registry:   registry,
		Aggregator: agg,
		Estimator:  est,
		Splitter:   split,
		Stats:      stats,
		Router:     rt,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })

		deps.BookCache = redis.NewBookCache(rdb, cfg.Redis.SnapshotTTL.Duration)
		deps.ProfileCache = redis.NewProfileCache(rdb)
		rt.WithBookCache(deps.BookCache)

		// Publish the configured reference data so external consumers see
		// the same profiles the router uses.
		for _, name := range registry.Names() {
			if p, ok := registry.Profile(name); ok {
				if err := deps.ProfileCache.SetProfile(ctx, p); err != nil {
					logger.Warn("seed venue profile",
						slog.String("venue", name),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}

	if cfg.Postgres.DSN != "" || cfg.Postgres.Host != "" {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if err := pg.RunMigrations(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("app: migrate: %w", err)
		}

		deps.Store = postgres.NewExecutionStore(pg.Pool())
		rt.WithStore(deps.Store)
	}

	if cfg.S3.Bucket != "" {
		blob, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: connect object storage: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(blob, cfg.S3.Prefix)
		rt.WithArchiver(deps.Archiver)
	}

	return deps, cleanup, nil
}

// buildRegistry constructs one venue client per configuration entry and
// registers it with its reference profile.
func buildRegistry(cfg *config.Config) (*venue.Registry, error) {
	registry := venue.NewRegistry()

	for _, vc := range cfg.Venues.Venues {
		var client domain.VenueClient
		switch vc.Mode {
		case "rest":
			client = rest.NewClient(vc.Name, vc.BaseURL, vc.APIKey)
		case "sim", "":
			client = sim.New(sim.Config{
				Name:        vc.Name,
				BasePrice:   vc.BasePrice,
				SpreadBps:   vc.SpreadBps,
				DepthLevels: vc.DepthLevels,
				LevelSize:   vc.LevelSize,
				LatencyMs:   vc.LatencyMs,
				FailureRate: vc.FailureRate,
				TakerFee:    vc.TakerFee,
			})
		default:
			return nil, fmt.Errorf("app: venue %q: unknown mode %q", vc.Name, vc.Mode)
		}

		registry.Register(client, domain.VenueProfile{
			MakerFee:      vc.MakerFee,
			TakerFee:      vc.TakerFee,
			MinOrderValue: vc.MinOrderValue,
			LatencyMs:     vc.LatencyMs,
		})
	}

	return registry, nil
}
