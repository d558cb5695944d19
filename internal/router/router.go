// Package router orchestrates execution planning: it aggregates liquidity,
// estimates cost, selects an execution algorithm, drives it, and folds the
// fills into one ExecutionResult.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/estimator"
	"github.com/quantbot/smartrouter/internal/executor"
	"github.com/quantbot/smartrouter/internal/splitter"
)

// Config holds the router's decision thresholds and executor defaults.
type Config struct {
	SmallOrderThresholdUSD float64       // below this, always direct
	LargeOrderThresholdUSD float64       // above this, always volume-sliced
	ImpactThreshold        float64       // estimated impact above this goes volume-sliced
	TWAPInterval           time.Duration // default inter-clip spacing
	TWAPBaseDuration       time.Duration // window for a small patient order; scaled up with size
	VWAPBucketDuration     time.Duration // profile bucket length, an hour in production
	VWAPSubIntervals       int
	ParticipationRate      float64 // conservative cap handed to VWAP
	LegTimeout             time.Duration
	JitterFraction         float64       // 0 disables jitter
	JitterSeed             int64         // 0 means time-seeded
	DedupWindow            time.Duration // 0 disables duplicate-request suppression
}

func (c Config) withDefaults() Config {
	if c.SmallOrderThresholdUSD <= 0 {
		c.SmallOrderThresholdUSD = 10_000
	}
	if c.LargeOrderThresholdUSD <= 0 {
		c.LargeOrderThresholdUSD = 250_000
	}
	if c.ImpactThreshold <= 0 {
		c.ImpactThreshold = 0.02
	}
	if c.TWAPInterval <= 0 {
		c.TWAPInterval = 60 * time.Second
	}
	if c.TWAPBaseDuration <= 0 {
		c.TWAPBaseDuration = 10 * time.Minute
	}
	if c.VWAPBucketDuration <= 0 {
		c.VWAPBucketDuration = time.Hour
	}
	if c.ParticipationRate <= 0 {
		c.ParticipationRate = executor.DefaultParticipationRate
	}
	if c.LegTimeout <= 0 {
		c.LegTimeout = 10 * time.Second
	}
	return c
}

// BookSource supplies aggregated books; implemented by book.Aggregator.
type BookSource interface {
	Aggregate(ctx context.Context, asset string, venues []string) (*domain.AggregatedBook, error)
}

// Router is the orchestrator. All state is scoped to one Route invocation
// except the injected Stats counters; a single Router serves concurrent
// callers.
type Router struct {
	books    BookSource
	est      *estimator.Estimator
	split    *splitter.Splitter
	clients  domain.ClientSource
	cfg      Config
	stats    *Stats
	logger   *slog.Logger
	hook     executor.FillHook
	done     func(*domain.ExecutionResult)
	store    domain.ExecutionStore
	archiver domain.Archiver
	cache    domain.BookCache
	dd       *dedup
}

// New creates a Router. Stats must be non-nil; store, archiver, cache, and
// fill hook are optional collaborators attached via the With* methods.
func New(
	books BookSource,
	est *estimator.Estimator,
	split *splitter.Splitter,
	clients domain.ClientSource,
	cfg Config,
	stats *Stats,
	logger *slog.Logger,
) *Router {
	r := &Router{
		books:   books,
		est:     est,
		split:   split,
		clients: clients,
		cfg:     cfg.withDefaults(),
		stats:   stats,
		logger:  logger.With(slog.String("component", "router")),
	}
	if r.cfg.DedupWindow > 0 {
		r.dd = newDedup(r.cfg.DedupWindow)
	}
	return r
}

// WithStore attaches an audit store for finalized results.
func (r *Router) WithStore(store domain.ExecutionStore) *Router {
	r.store = store
	return r
}

// WithArchiver attaches a long-term archiver for finalized results.
func (r *Router) WithArchiver(a domain.Archiver) *Router {
	r.archiver = a
	return r
}

// WithBookCache attaches a cache that receives every fresh aggregated book
// for read-side consumers. Routing never reads from it.
func (r *Router) WithBookCache(c domain.BookCache) *Router {
	r.cache = c
	return r
}

// OnFill registers a hook invoked for every fill across all executions.
func (r *Router) OnFill(hook executor.FillHook) *Router {
	r.hook = hook
	return r
}

// OnResult registers a hook invoked once per route with the finalized
// result, after stats are recorded and before persistence.
func (r *Router) OnResult(hook func(*domain.ExecutionResult)) *Router {
	r.done = hook
	return r
}

// Stats returns the router's counter object for read-only queries.
func (r *Router) Stats() Snapshot {
	return r.stats.Snapshot()
}

// Route plans and executes one order. Fatal errors (invalid request, zero
// venues responding) return before any order is submitted; every other
// failure mode is folded into the returned ExecutionResult so the caller
// always learns exactly what happened.
func (r *Router) Route(ctx context.Context, req domain.RouteRequest) (*domain.ExecutionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Urgency == "" {
		req.Urgency = domain.UrgencyNormal
	}
	if r.dd != nil && r.dd.isDuplicate(req) {
		return nil, fmt.Errorf("router: %w", domain.ErrDuplicateRoute)
	}

	book, aggErr := r.books.Aggregate(ctx, req.Asset, req.Venues)
	if book == nil {
		return nil, fmt.Errorf("router: %w", aggErr)
	}
	var partial *domain.PartialBookError
	if aggErr != nil && !errors.As(aggErr, &partial) {
		return nil, fmt.Errorf("router: %w", aggErr)
	}
	if r.cache != nil {
		if cerr := r.cache.SetSnapshot(ctx, *book); cerr != nil {
			r.logger.Warn("book cache update failed", slog.String("error", cerr.Error()))
		}
	}

	est, estErr := r.est.Estimate(book, req.Side, req.Quantity)
	orderValue := req.Quantity * book.MidPrice()

	route, err := r.plan(req, book, est, orderValue)
	if err != nil {
		return nil, err
	}

	r.logger.Info("route planned",
		slog.String("route_id", route.ID),
		slog.String("asset", route.Asset),
		slog.String("algorithm", string(route.Algorithm)),
		slog.Float64("order_value_usd", orderValue),
		slog.Float64("expected_slippage", est.Slippage),
		slog.Float64("expected_impact", est.Impact),
		slog.Int("legs", len(route.Legs)),
	)

	res := domain.NewExecutionResult(route)
	if partial != nil {
		res.AddError(partial)
	}
	if estErr != nil {
		var ile *domain.InsufficientLiquidityError
		if errors.As(estErr, &ile) {
			res.AddError(ile)
		}
	}

	r.execute(ctx, req, route, res, orderValue)
	res.Finalize()

	r.stats.Record(res)
	if r.done != nil {
		r.done(res)
	}
	r.persist(res)
	return res, nil
}

// plan applies the decision policy and builds the Route. Building a Route
// has no side effects; nothing is submitted here.
func (r *Router) plan(req domain.RouteRequest, book *domain.AggregatedBook, est estimator.Estimate, orderValue float64) (*domain.Route, error) {
	route := &domain.Route{
		ID:               uuid.New().String(),
		Asset:            req.Asset,
		Side:             req.Side,
		TotalQuantity:    req.Quantity,
		AvgExpectedPrice: est.ExpectedPrice,
		ExpectedSlippage: est.Slippage,
		ExpectedImpact:   est.Impact,
		CreatedAt:        time.Now().UTC(),
	}

	switch {
	case req.Urgency == domain.UrgencyUrgent || orderValue < r.cfg.SmallOrderThresholdUSD:
		route.Algorithm = domain.AlgorithmDirect
	case est.Impact > r.cfg.ImpactThreshold || orderValue > r.cfg.LargeOrderThresholdUSD:
		route.Algorithm = domain.AlgorithmVWAP
	case req.Urgency == domain.UrgencyPatient:
		route.Algorithm = domain.AlgorithmTWAP
	default:
		route.Algorithm = domain.AlgorithmDirect
	}

	if route.Algorithm == domain.AlgorithmDirect {
		legs, err := r.split.Split(book, req.Side, req.Quantity)
		if err != nil {
			return nil, fmt.Errorf("router: split: %w", err)
		}
		route.Legs = legs
		if verr := route.Validate(); verr != nil {
			return nil, fmt.Errorf("router: %w", verr)
		}
	}
	return route, nil
}

// execute drives the chosen algorithm. Executor-level failures surface only
// through the result, matching the accumulate-not-raise policy.
func (r *Router) execute(ctx context.Context, req domain.RouteRequest, route *domain.Route, res *domain.ExecutionResult, orderValue float64) {
	switch route.Algorithm {
	case domain.AlgorithmTWAP:
		tw := executor.NewTWAP(r.books, r.clients, executor.TWAPConfig{
			Interval: r.cfg.TWAPInterval,
			Duration: r.twapDuration(orderValue),
			Jitter:   r.jitter(),
		}, r.logger)
		tw.OnFill(r.hook)
		if err := tw.Execute(ctx, req, res); err != nil {
			res.AddError(err)
		}
	case domain.AlgorithmVWAP:
		vw := executor.NewVWAP(r.books, r.clients, executor.VWAPConfig{
			ParticipationRate: r.cfg.ParticipationRate,
			SubIntervals:      r.cfg.VWAPSubIntervals,
			BucketDuration:    r.cfg.VWAPBucketDuration,
			StartHour:         -1,
			Jitter:            r.jitter(),
		}, r.logger)
		vw.OnFill(r.hook)
		if err := vw.Execute(ctx, req, res); err != nil {
			res.AddError(err)
		}
	default:
		r.executeDirect(ctx, route, res)
	}
}

// twapDuration scales the execution window with order size: one base window
// per small-order-threshold of notional, capped at six hours.
func (r *Router) twapDuration(orderValue float64) time.Duration {
	multiple := orderValue / r.cfg.SmallOrderThresholdUSD
	if multiple < 1 {
		multiple = 1
	}
	d := time.Duration(float64(r.cfg.TWAPBaseDuration) * multiple)
	if max := 6 * time.Hour; d > max {
		d = max
	}
	return d
}

func (r *Router) jitter() executor.Jitter {
	if r.cfg.JitterFraction <= 0 {
		return executor.NoJitter{}
	}
	seed := r.cfg.JitterSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return executor.NewRandomJitter(r.cfg.JitterFraction, seed)
}

// persist hands the finalized result to the audit store and archiver.
// Persistence is an external collaborator: failures are logged, never
// allowed to fail the route.
func (r *Router) persist(res *domain.ExecutionResult) {
	// Detached context: persistence should survive the caller cancelling
	// right after execution finishes.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.store != nil {
		if err := r.store.Create(ctx, *res); err != nil {
			r.logger.Warn("execution store write failed",
				slog.String("route_id", res.RouteID),
				slog.String("error", err.Error()),
			)
		}
	}
	if r.archiver != nil {
		if err := r.archiver.ArchiveResult(ctx, *res); err != nil {
			r.logger.Warn("execution archive failed",
				slog.String("route_id", res.RouteID),
				slog.String("error", err.Error()),
			)
		}
	}
}
