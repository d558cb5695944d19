package executor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/quantbot/smartrouter/internal/domain"
)

// DefaultSubIntervals is how many sub-clips each hourly bucket is divided
// into for smoother release.
const DefaultSubIntervals = 4

// DefaultParticipationRate caps one hour's allocation at this fraction of
// the order's total size, so thin historical-volume hours are never
// dominated by our own flow.
const DefaultParticipationRate = 0.10

// DefaultVolumeProfile is a 24-point intraday volume-share curve (one weight
// per UTC hour, summing to 1.0): heavier around the US/EU session overlap,
// lighter overnight. Deployments with their own curve override it in config.
var DefaultVolumeProfile = [24]float64{
	0.020, 0.015, 0.013, 0.012, 0.012, 0.015,
	0.020, 0.030, 0.045, 0.055, 0.055, 0.050,
	0.050, 0.060, 0.075, 0.080, 0.075, 0.065,
	0.055, 0.050, 0.045, 0.040, 0.035, 0.028,
}

// VWAPConfig holds the volume-curve parameters for one run.
type VWAPConfig struct {
	// Profile is the hourly volume-share curve; weights should sum to 1.0.
	Profile [24]float64
	// SubIntervals divides each hourly bucket; defaults to 4.
	SubIntervals int
	// ParticipationRate caps each hour's clip at this fraction of total
	// order size regardless of profile weight; defaults to 0.10.
	ParticipationRate float64
	// BucketDuration is the wall-clock length of one profile bucket. It is
	// an hour in production and shrunk in tests.
	BucketDuration time.Duration
	// StartHour is the first profile bucket to execute; -1 means the
	// current UTC hour.
	StartHour int
	Jitter    Jitter
}

func (c VWAPConfig) withDefaults() VWAPConfig {
	sum := 0.0
	for _, w := range c.Profile {
		sum += w
	}
	if sum == 0 {
		c.Profile = DefaultVolumeProfile
	}
	if c.SubIntervals <= 0 {
		c.SubIntervals = DefaultSubIntervals
	}
	if c.ParticipationRate <= 0 {
		c.ParticipationRate = DefaultParticipationRate
	}
	if c.BucketDuration <= 0 {
		c.BucketDuration = time.Hour
	}
	if c.StartHour < 0 || c.StartHour > 23 {
		c.StartHour = time.Now().UTC().Hour()
	}
	if c.Jitter == nil {
		c.Jitter = NoJitter{}
	}
	return c
}

// bucketQuantities allocates the total across the 24 buckets beginning at
// StartHour. Each bucket wants weight*total plus whatever previous buckets
// could not place; the participation cap bounds what it may actually take,
// the excess carries forward. A residual after the final bucket stays
// unexecuted and surfaces as a partial fill.
func (c VWAPConfig) bucketQuantities(total float64) []float64 {
	out := make([]float64, len(c.Profile))
	maxTake := c.ParticipationRate * total
	var carry float64
	for i := range c.Profile {
		hour := (c.StartHour + i) % len(c.Profile)
		desired := c.Profile[hour]*total + carry
		take := math.Min(desired, maxTake)
		out[i] = take
		carry = desired - take
	}
	return out
}

// VWAP releases an order in clips sized by a historical intraday volume
// curve. Hour buckets are subdivided into SubIntervals sub-clips; every
// sub-clip re-aggregates and routes to the best-priced venue, exactly like
// a TWAP clip.
type VWAP struct {
	clipRunner
	cfg     VWAPConfig
	machine *stateMachine
}

// NewVWAP creates a VWAP executor in the Idle state.
func NewVWAP(books BookSource, clients domain.ClientSource, cfg VWAPConfig, logger *slog.Logger) *VWAP {
	return &VWAP{
		clipRunner: clipRunner{
			books:   books,
			clients: clients,
			logger:  logger.With(slog.String("component", "vwap_executor")),
		},
		cfg:     cfg.withDefaults(),
		machine: newStateMachine(),
	}
}

// OnFill registers a hook invoked for every appended fill. Must be called
// before Execute.
func (e *VWAP) OnFill(hook FillHook) { e.hook = hook }

// State returns the executor's current lifecycle state.
func (e *VWAP) State() State { return e.machine.State() }

// Execute runs the sequential volume-curve loop. Cancellation semantics
// match TWAP: stop before the next clip's book refresh, keep prior fills.
func (e *VWAP) Execute(ctx context.Context, req domain.RouteRequest, res *domain.ExecutionResult) error {
	if err := e.machine.start(); err != nil {
		return err
	}
	res.SetStatus(domain.StatusExecuting)

	buckets := e.cfg.bucketQuantities(req.Quantity)
	subSleep := e.cfg.BucketDuration / time.Duration(e.cfg.SubIntervals)

	e.logger.Info("vwap execution started",
		slog.String("route_id", res.RouteID),
		slog.String("asset", req.Asset),
		slog.Int("start_hour", e.cfg.StartHour),
		slog.Float64("participation_rate", e.cfg.ParticipationRate),
	)

	clipIdx := 0
	for _, bucketQty := range buckets {
		if bucketQty <= domain.QuantityEpsilon {
			continue
		}
		subQty := bucketQty / float64(e.cfg.SubIntervals)
		for s := 0; s < e.cfg.SubIntervals; s++ {
			if err := sleepJittered(ctx, subSleep, e.cfg.Jitter); err != nil {
				e.logger.Info("vwap cancelled between clips",
					slog.String("route_id", res.RouteID),
					slog.Int("completed_clips", clipIdx),
				)
				e.machine.finish(StateCancelled)
				res.Finalize()
				return nil
			}
			e.runClip(ctx, req, res, clipIdx, subQty)
			clipIdx++
		}
	}

	res.Finalize()
	if res.FillRate() == 0 {
		e.machine.finish(StateFailed)
	} else {
		e.machine.finish(StateCompleted)
	}
	e.logger.Info("vwap execution finished",
		slog.String("route_id", res.RouteID),
		slog.String("status", string(res.Status)),
		slog.Float64("fill_rate", res.FillRate()),
	)
	return nil
}
