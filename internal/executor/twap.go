package executor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/quantbot/smartrouter/internal/domain"
)

// TWAPConfig holds the pacing parameters for one time-sliced run.
type TWAPConfig struct {
	Interval time.Duration // spacing between clips
	Duration time.Duration // total execution window
	Jitter   Jitter        // nil means NoJitter
}

// ClipCount returns ceil(duration / interval) — the number of equal clips
// the order is divided into.
func (c TWAPConfig) ClipCount() int {
	if c.Interval <= 0 || c.Duration <= 0 {
		return 1
	}
	return int(math.Ceil(c.Duration.Seconds() / c.Interval.Seconds()))
}

// TWAP releases an order in equal clips at a fixed, jittered cadence. Each
// clip re-aggregates the book and routes to the venue currently offering
// the best price. One TWAP value runs one order; create a fresh instance
// per execution.
type TWAP struct {
	clipRunner
	cfg     TWAPConfig
	machine *stateMachine
}

// NewTWAP creates a TWAP executor in the Idle state.
func NewTWAP(books BookSource, clients domain.ClientSource, cfg TWAPConfig, logger *slog.Logger) *TWAP {
	if cfg.Jitter == nil {
		cfg.Jitter = NoJitter{}
	}
	return &TWAP{
		clipRunner: clipRunner{
			books:   books,
			clients: clients,
			logger:  logger.With(slog.String("component", "twap_executor")),
		},
		cfg:     cfg,
		machine: newStateMachine(),
	}
}

// OnFill registers a hook invoked for every appended fill. Must be called
// before Execute.
func (e *TWAP) OnFill(hook FillHook) { e.hook = hook }

// State returns the executor's current lifecycle state.
func (e *TWAP) State() State { return e.machine.State() }

// Execute runs the sequential clip loop, mutating res as its only writer.
// Cancellation (ctx) between clips stops further slices but never unwinds
// fills already executed: partial completion is a valid terminal state. The
// inter-clip sleep is the only blocking point of the loop.
func (e *TWAP) Execute(ctx context.Context, req domain.RouteRequest, res *domain.ExecutionResult) error {
	if err := e.machine.start(); err != nil {
		return err
	}
	res.SetStatus(domain.StatusExecuting)

	clips := e.cfg.ClipCount()
	clipQty := req.Quantity / float64(clips)

	e.logger.Info("twap execution started",
		slog.String("route_id", res.RouteID),
		slog.String("asset", req.Asset),
		slog.Int("clips", clips),
		slog.Float64("clip_quantity", clipQty),
		slog.Duration("interval", e.cfg.Interval),
	)

	for i := 0; i < clips; i++ {
		if err := sleepJittered(ctx, e.cfg.Interval, e.cfg.Jitter); err != nil {
			e.logger.Info("twap cancelled between clips",
				slog.String("route_id", res.RouteID),
				slog.Int("completed_clips", i),
			)
			e.machine.finish(StateCancelled)
			res.Finalize()
			return nil
		}
		e.runClip(ctx, req, res, i, clipQty)
	}

	res.Finalize()
	if res.FillRate() == 0 {
		e.machine.finish(StateFailed)
	} else {
		e.machine.finish(StateCompleted)
	}
	e.logger.Info("twap execution finished",
		slog.String("route_id", res.RouteID),
		slog.String("status", string(res.Status)),
		slog.Float64("fill_rate", res.FillRate()),
	)
	return nil
}

// sleepJittered waits one jittered interval or returns ctx.Err on
// cancellation. This is the suspension point between clips.
func sleepJittered(ctx context.Context, base time.Duration, j Jitter) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(j.Delay(base)):
		return nil
	}
}
