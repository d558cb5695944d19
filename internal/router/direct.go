package router

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quantbot/smartrouter/internal/domain"
)

// executeDirect fans the route's legs out to their venues in parallel and
// waits for all of them. One leg's failure never blocks its siblings; each
// outcome is recorded independently. Fills are appended in completion
// order, which may differ from leg order.
func (r *Router) executeDirect(ctx context.Context, route *domain.Route, res *domain.ExecutionResult) {
	res.SetStatus(domain.StatusExecuting)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(route.Legs)) // one worker per venue, never unbounded

	for _, leg := range route.Legs {
		g.Go(func() error {
			// Cancellation lets in-flight calls finish but submits nothing new.
			if gctx.Err() != nil {
				mu.Lock()
				res.AddError(&domain.LegExecutionError{Venue: leg.Venue, Err: gctx.Err()})
				mu.Unlock()
				return nil
			}

			client, ok := r.clients.Client(leg.Venue)
			if !ok {
				mu.Lock()
				res.AddError(&domain.LegExecutionError{Venue: leg.Venue, Err: domain.ErrNotFound})
				mu.Unlock()
				return nil
			}

			legCtx, cancel := context.WithTimeout(gctx, r.cfg.LegTimeout)
			defer cancel()

			fill, err := client.SubmitOrder(legCtx, route.Asset, leg.Side, leg.Quantity, leg.LimitPrice)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.AddError(&domain.LegExecutionError{Venue: leg.Venue, Err: err})
				r.logger.Warn("leg failed",
					slog.String("route_id", route.ID),
					slog.String("venue", leg.Venue),
					slog.String("error", err.Error()),
				)
				return nil
			}
			res.AddFill(fill)
			if r.hook != nil {
				r.hook(route.ID, fill)
			}
			return nil
		})
	}
	// Legs report failures through the result, never as group errors.
	_ = g.Wait()
}
