package book

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/venue/venuetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func twoVenueRegistry() venuetest.Registry {
	return venuetest.Registry{
		"alpha": venuetest.New("alpha", domain.VenueBook{
			Bids: []domain.PriceLevel{{Price: 99, Quantity: 5}, {Price: 98, Quantity: 10}},
			Asks: []domain.PriceLevel{{Price: 101, Quantity: 4}, {Price: 102, Quantity: 8}},
		}),
		"beta": venuetest.New("beta", domain.VenueBook{
			Bids: []domain.PriceLevel{{Price: 99.5, Quantity: 3}},
			Asks: []domain.PriceLevel{{Price: 100.5, Quantity: 6}, {Price: 101, Quantity: 2}},
		}),
	}
}

func TestAggregateMergesAndSorts(t *testing.T) {
	reg := twoVenueRegistry()
	agg := NewAggregator(reg, Config{Depth: 10, FetchTimeout: time.Second}, testLogger())

	bk, err := agg.Aggregate(context.Background(), "BTC-USD", []string{"alpha", "beta"})
	require.NoError(t, err)
	require.NotNil(t, bk)

	// Sort invariants.
	for i := 0; i+1 < len(bk.Bids); i++ {
		assert.GreaterOrEqual(t, bk.Bids[i].Price, bk.Bids[i+1].Price)
	}
	for i := 0; i+1 < len(bk.Asks); i++ {
		assert.LessOrEqual(t, bk.Asks[i].Price, bk.Asks[i+1].Price)
	}

	// Venue tagging, no netting: alpha's 101 ask and beta's 101 ask both survive.
	var at101 []string
	for _, l := range bk.Asks {
		if l.Price == 101 {
			at101 = append(at101, l.Venue)
		}
	}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, at101)

	assert.Equal(t, 99.5, bk.BestBid().Price)
	assert.Equal(t, "beta", bk.BestBid().Venue)
	assert.Equal(t, 100.5, bk.BestAsk().Price)
	assert.InDelta(t, 100.0, bk.MidPrice(), 1e-9)
}

func TestAggregatePartialBook(t *testing.T) {
	reg := twoVenueRegistry()
	reg["beta"].FetchErr = errors.New("connection reset")
	agg := NewAggregator(reg, Config{}, testLogger())

	bk, err := agg.Aggregate(context.Background(), "BTC-USD", []string{"alpha", "beta"})
	require.NotNil(t, bk)

	var pbe *domain.PartialBookError
	require.ErrorAs(t, err, &pbe)
	assert.Equal(t, []string{"beta"}, pbe.Missing)

	// Only alpha's liquidity present.
	for _, l := range bk.Asks {
		assert.Equal(t, "alpha", l.Venue)
	}
}

func TestAggregateVenueTimeoutDropped(t *testing.T) {
	reg := twoVenueRegistry()
	reg["beta"].Delay = 200 * time.Millisecond
	agg := NewAggregator(reg, Config{FetchTimeout: 20 * time.Millisecond}, testLogger())

	bk, err := agg.Aggregate(context.Background(), "BTC-USD", []string{"alpha", "beta"})
	require.NotNil(t, bk)

	var pbe *domain.PartialBookError
	require.ErrorAs(t, err, &pbe)
	assert.Equal(t, []string{"beta"}, pbe.Missing)
	assert.Equal(t, 1, reg["beta"].CallCount("FetchBook")) // no retry within one aggregation
}

func TestAggregateAllVenuesDown(t *testing.T) {
	reg := twoVenueRegistry()
	reg["alpha"].FetchErr = errors.New("down")
	reg["beta"].FetchErr = errors.New("down")
	agg := NewAggregator(reg, Config{}, testLogger())

	bk, err := agg.Aggregate(context.Background(), "BTC-USD", []string{"alpha", "beta"})
	assert.Nil(t, bk)
	require.ErrorIs(t, err, domain.ErrNoVenuesResponded)
}

func TestAggregateUnknownVenueIsMissing(t *testing.T) {
	reg := twoVenueRegistry()
	agg := NewAggregator(reg, Config{}, testLogger())

	bk, err := agg.Aggregate(context.Background(), "BTC-USD", []string{"alpha", "gamma"})
	require.NotNil(t, bk)

	var pbe *domain.PartialBookError
	require.ErrorAs(t, err, &pbe)
	assert.Equal(t, []string{"gamma"}, pbe.Missing)
}
