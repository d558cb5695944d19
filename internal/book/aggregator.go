// Package book merges per-venue depth snapshots into one unified, sorted
// view of the market for a single asset.
package book

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Config holds the aggregator's tunable parameters.
type Config struct {
	Depth        int           // top-N levels requested per venue
	FetchTimeout time.Duration // per-venue call budget
}

// Aggregator fetches depth concurrently from every requested venue and
// merges the levels into a single AggregatedBook, tagging each level with
// its originating venue. Liquidity is never netted across venues: the same
// nominal price from two venues stays two distinct levels so downstream
// logic knows where to send orders.
type Aggregator struct {
	clients domain.ClientSource
	cfg     Config
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator over the given client source.
func NewAggregator(clients domain.ClientSource, cfg Config, logger *slog.Logger) *Aggregator {
	if cfg.Depth <= 0 {
		cfg.Depth = 10
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Second
	}
	return &Aggregator{
		clients: clients,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "book_aggregator")),
	}
}

// Aggregate fetches top-of-book depth from every venue in parallel (one call
// per venue, each with its own timeout) and merges the results. A venue that
// times out or errors is dropped from this snapshot, not retried.
//
// When at least one venue responds, the book is returned; if any venue is
// missing the error is a *domain.PartialBookError listing them, so callers
// can proceed with reduced depth. When zero venues respond the error wraps
// domain.ErrNoVenuesResponded and no book is returned.
func (a *Aggregator) Aggregate(ctx context.Context, asset string, venues []string) (*domain.AggregatedBook, error) {
	if len(venues) == 0 {
		return nil, fmt.Errorf("book: %w: no venues requested", domain.ErrNoVenuesResponded)
	}

	var (
		mu      sync.Mutex
		fetched []domain.VenueBook
		missing []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(venues))
	for _, name := range venues {
		g.Go(func() error {
			client, ok := a.clients.Client(name)
			if !ok {
				mu.Lock()
				missing = append(missing, name)
				mu.Unlock()
				a.logger.Warn("unknown venue requested", slog.String("venue", name))
				return nil
			}

			callCtx, cancel := context.WithTimeout(gctx, a.cfg.FetchTimeout)
			defer cancel()

			vb, err := client.FetchBook(callCtx, asset, a.cfg.Depth)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				missing = append(missing, name)
				a.logger.Warn("venue book fetch failed",
					slog.String("venue", name),
					slog.String("asset", asset),
					slog.String("error", err.Error()),
				)
				return nil
			}
			fetched = append(fetched, vb)
			return nil
		})
	}
	// Goroutines report per-venue failure through missing, never an error.
	_ = g.Wait()

	if len(fetched) == 0 {
		return nil, fmt.Errorf("book: aggregate %s: %w", asset, domain.ErrNoVenuesResponded)
	}

	agg := merge(asset, fetched)

	if len(missing) > 0 {
		sort.Strings(missing)
		return agg, &domain.PartialBookError{Missing: missing}
	}
	return agg, nil
}

// merge combines per-venue books into one sorted AggregatedBook. Bids sort
// price-descending, asks price-ascending; ties keep venue order stable so
// repeated aggregations of the same inputs produce the same view.
func merge(asset string, books []domain.VenueBook) *domain.AggregatedBook {
	agg := &domain.AggregatedBook{
		Asset:      asset,
		ObservedAt: time.Now().UTC(),
	}
	for _, vb := range books {
		for _, l := range vb.Bids {
			agg.Bids = append(agg.Bids, tagged(vb.Venue, l))
		}
		for _, l := range vb.Asks {
			agg.Asks = append(agg.Asks, tagged(vb.Venue, l))
		}
	}

	sort.SliceStable(agg.Bids, func(i, j int) bool {
		return agg.Bids[i].Price > agg.Bids[j].Price
	})
	sort.SliceStable(agg.Asks, func(i, j int) bool {
		return agg.Asks[i].Price < agg.Asks[j].Price
	})
	return agg
}

// tagged stamps the venue onto a level in case the adapter left it blank.
func tagged(venue string, l domain.PriceLevel) domain.PriceLevel {
	if l.Venue == "" {
		l.Venue = venue
	}
	return l
}
