package splitter

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
)

func bookWith(asks ...domain.PriceLevel) *domain.AggregatedBook {
	return &domain.AggregatedBook{Asset: "BTC-USD", Asks: asks}
}

func legSum(legs []domain.Leg) float64 {
	var s float64
	for _, l := range legs {
		s += l.Quantity
	}
	return s
}

func TestSplitProportionalToLiquidity(t *testing.T) {
	// Venue A offers 10 units, venue B offers 40 at the same price:
	// a 20-unit order splits A=4, B=16.
	book := bookWith(
		domain.PriceLevel{Venue: "a", Price: 100, Quantity: 10},
		domain.PriceLevel{Venue: "b", Price: 100, Quantity: 40},
	)
	legs, err := New(Config{}).Split(book, domain.SideBuy, 20)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	byVenue := map[string]domain.Leg{}
	for _, l := range legs {
		byVenue[l.Venue] = l
	}
	assert.InDelta(t, 4.0, byVenue["a"].Quantity, 1e-9)
	assert.InDelta(t, 16.0, byVenue["b"].Quantity, 1e-9)
	assert.InDelta(t, 20.0, legSum(legs), domain.QuantityEpsilon)
}

func TestSplitUniqueVenuesAndLegCap(t *testing.T) {
	var asks []domain.PriceLevel
	for i := 0; i < 15; i++ {
		asks = append(asks,
			domain.PriceLevel{Venue: fmt.Sprintf("v%02d", i), Price: 100, Quantity: float64(i + 1)},
			domain.PriceLevel{Venue: fmt.Sprintf("v%02d", i), Price: 101, Quantity: float64(i + 1)},
		)
	}
	legs, err := New(Config{MaxLegs: 10}).Split(bookWith(asks...), domain.SideBuy, 50)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(legs), 10)
	seen := map[string]bool{}
	for _, l := range legs {
		assert.False(t, seen[l.Venue], "venue %s appears twice", l.Venue)
		seen[l.Venue] = true
	}
	assert.InDelta(t, 50.0, legSum(legs), domain.QuantityEpsilon)
	// Lowest-liquidity venues beyond the cap are the ones dropped.
	assert.False(t, seen["v00"])
	assert.True(t, seen["v14"])
}

func TestSplitMinLegValueRedistributes(t *testing.T) {
	book := bookWith(
		domain.PriceLevel{Venue: "deep", Price: 100, Quantity: 95},
		domain.PriceLevel{Venue: "thin", Price: 100, Quantity: 5},
	)
	// thin's proportional share of 10 units is 0.5 units = $50 < $100 minimum.
	legs, err := New(Config{MinLegValue: 100}).Split(book, domain.SideBuy, 10)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "deep", legs[0].Venue)
	assert.InDelta(t, 10.0, legs[0].Quantity, domain.QuantityEpsilon)
}

func TestSplitBelowMinimumGoesToNextLargest(t *testing.T) {
	book := bookWith(
		domain.PriceLevel{Venue: "deep", Price: 100, Quantity: 60},
		domain.PriceLevel{Venue: "mid", Price: 100, Quantity: 30},
		domain.PriceLevel{Venue: "thin", Price: 100, Quantity: 5},
	)
	// thin's share of 10 units is ~0.53 units = ~$53 < $100 minimum. The
	// whole share moves to mid, the next-largest venue; deep keeps its own.
	legs, err := New(Config{MinLegValue: 100}).Split(book, domain.SideBuy, 10)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	byVenue := map[string]domain.Leg{}
	for _, l := range legs {
		byVenue[l.Venue] = l
	}
	assert.InDelta(t, 10.0*6000/9500, byVenue["deep"].Quantity, 1e-9)
	assert.InDelta(t, 10.0*(3000+500)/9500, byVenue["mid"].Quantity, 1e-9)
	assert.InDelta(t, 10.0, legSum(legs), domain.QuantityEpsilon)
}

type profileMap map[string]domain.VenueProfile

func (p profileMap) Profile(name string) (domain.VenueProfile, bool) {
	v, ok := p[name]
	return v, ok
}

func TestSplitHonorsVenueMinimumOrderValue(t *testing.T) {
	book := bookWith(
		domain.PriceLevel{Venue: "a", Price: 100, Quantity: 50},
		domain.PriceLevel{Venue: "b", Price: 100, Quantity: 50},
	)
	// Both shares are $500; venue b requires $600 per order, so its share
	// moves to a even though the global floor is satisfied.
	s := New(Config{MinLegValue: 100}).WithProfiles(profileMap{
		"b": {Venue: "b", MinOrderValue: 600},
	})
	legs, err := s.Split(book, domain.SideBuy, 10)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "a", legs[0].Venue)
	assert.InDelta(t, 10.0, legs[0].Quantity, domain.QuantityEpsilon)
}

func TestSplitAllBelowMinimumUsesDeepestVenue(t *testing.T) {
	book := bookWith(
		domain.PriceLevel{Venue: "a", Price: 10, Quantity: 3},
		domain.PriceLevel{Venue: "b", Price: 10, Quantity: 2},
	)
	legs, err := New(Config{MinLegValue: 1000}).Split(book, domain.SideBuy, 4)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "a", legs[0].Venue)
	assert.InDelta(t, 4.0, legs[0].Quantity, domain.QuantityEpsilon)
}

func TestSplitRemainderGoesToLargestLeg(t *testing.T) {
	book := bookWith(
		domain.PriceLevel{Venue: "a", Price: 100, Quantity: 1},
		domain.PriceLevel{Venue: "b", Price: 100, Quantity: 1},
		domain.PriceLevel{Venue: "c", Price: 100, Quantity: 1},
	)
	legs, err := New(Config{}).Split(book, domain.SideBuy, 10)
	require.NoError(t, err)
	require.Len(t, legs, 3)
	assert.True(t, math.Abs(legSum(legs)-10) <= domain.QuantityEpsilon,
		"got sum %v", legSum(legs))
}

func TestSplitSellUsesBids(t *testing.T) {
	book := &domain.AggregatedBook{
		Asset: "BTC-USD",
		Bids: []domain.PriceLevel{
			{Venue: "a", Price: 99, Quantity: 30},
			{Venue: "b", Price: 98, Quantity: 10},
		},
	}
	legs, err := New(Config{}).Split(book, domain.SideSell, 8)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	for _, l := range legs {
		assert.Equal(t, domain.SideSell, l.Side)
	}
}

func TestSplitEmptyBook(t *testing.T) {
	_, err := New(Config{}).Split(bookWith(), domain.SideBuy, 5)
	var ile *domain.InsufficientLiquidityError
	require.ErrorAs(t, err, &ile)
}
