package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantbot/smartrouter/internal/domain"
)

// clipRunner carries the plumbing shared by the TWAP and VWAP loops:
// re-aggregate, pick best venue, submit, record.
type clipRunner struct {
	books   BookSource
	clients domain.ClientSource
	hook    FillHook
	logger  *slog.Logger
}

// runClip aggregates a fresh book, routes the clip to the best-priced venue,
// and records the fill or the error on res. A failed clip never aborts the
// surrounding loop; partial completion is a valid outcome.
func (c *clipRunner) runClip(ctx context.Context, req domain.RouteRequest, res *domain.ExecutionResult, idx int, qty float64) {
	book, err := c.books.Aggregate(ctx, req.Asset, req.Venues)
	if err != nil {
		var pbe *domain.PartialBookError
		if book == nil || !errors.As(err, &pbe) {
			res.AddError(fmt.Errorf("clip %d: %w", idx, err))
			return
		}
		// Partial book: proceed on reduced depth. The miss is logged, not
		// recorded per clip, so one slow venue cannot flood the error list.
		c.logger.Debug("clip proceeding on partial book",
			slog.Int("clip", idx),
			slog.String("error", pbe.Error()),
		)
	}

	level, ok := bestVenueLevel(book, req.Side)
	if !ok {
		res.AddError(fmt.Errorf("clip %d: empty book", idx))
		return
	}
	client, found := c.clients.Client(level.Venue)
	if !found {
		res.AddError(fmt.Errorf("clip %d: no client for venue %s", idx, level.Venue))
		return
	}

	fill, err := client.SubmitOrder(ctx, req.Asset, req.Side, qty, level.Price)
	if err != nil {
		res.AddError(&domain.LegExecutionError{Venue: level.Venue, Err: fmt.Errorf("clip %d: %w", idx, err)})
		return
	}
	res.AddFill(fill)
	if c.hook != nil {
		c.hook(res.RouteID, fill)
	}
}
