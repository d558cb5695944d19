package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
)

func sampleBook() *domain.AggregatedBook {
	return &domain.AggregatedBook{
		Asset: "BTC-USD",
		Bids: []domain.PriceLevel{
			{Venue: "alpha", Price: 99, Quantity: 10},
			{Venue: "beta", Price: 98, Quantity: 20},
		},
		Asks: []domain.PriceLevel{
			{Venue: "alpha", Price: 101, Quantity: 10},
			{Venue: "beta", Price: 102, Quantity: 20},
		},
		ObservedAt: time.Now().UTC(),
	}
}

func TestEstimateBuyWalksAsks(t *testing.T) {
	est := New(0.1)
	got, err := est.Estimate(sampleBook(), domain.SideBuy, 15)
	require.NoError(t, err)

	// 10 @ 101 + 5 @ 102 = 1520, vwap = 101.333..., mid = 100.
	assert.InDelta(t, 101.3333, got.ExpectedPrice, 1e-3)
	assert.InDelta(t, 0.013333, got.Slippage, 1e-5)
	assert.Zero(t, got.Shortfall)
	assert.Greater(t, got.Impact, 0.0)
}

func TestEstimateIdempotent(t *testing.T) {
	est := New(0.1)
	book := sampleBook()

	first, err1 := est.Estimate(book, domain.SideSell, 25)
	second, err2 := est.Estimate(book, domain.SideSell, 25)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestEstimateShortfallPenalty(t *testing.T) {
	est := New(0.1)
	book := sampleBook()

	// Asks hold 30 units; ask for 40. Shortfall of 10 priced at 102 * 1.01.
	got, err := est.Estimate(book, domain.SideBuy, 40)

	var ile *domain.InsufficientLiquidityError
	require.ErrorAs(t, err, &ile)
	assert.InDelta(t, 40.0, ile.Requested, 1e-9)
	assert.InDelta(t, 30.0, ile.Available, 1e-9)
	assert.InDelta(t, 10.0, got.Shortfall, 1e-9)

	wantNotional := 10*101.0 + 20*102.0 + 10*102.0*1.01
	assert.InDelta(t, wantNotional/40, got.ExpectedPrice, 1e-9)
}

func TestEstimateSellShortfallPenalizesDown(t *testing.T) {
	est := New(0.1)
	got, err := est.Estimate(sampleBook(), domain.SideSell, 40)
	require.Error(t, err)

	// Bids hold 30; shortfall of 10 at 98 * 0.99 drags the vwap below book.
	wantNotional := 10*99.0 + 20*98.0 + 10*98.0*0.99
	assert.InDelta(t, wantNotional/40, got.ExpectedPrice, 1e-9)
}

type profileMap map[string]domain.VenueProfile

func (p profileMap) Profile(name string) (domain.VenueProfile, bool) {
	v, ok := p[name]
	return v, ok
}

func TestEstimateAppliesTakerFees(t *testing.T) {
	profiles := profileMap{
		"alpha": {Venue: "alpha", TakerFee: 0.002},
		"beta":  {Venue: "beta", TakerFee: 0.001},
	}
	est := New(0.1).WithProfiles(profiles)

	got, err := est.Estimate(sampleBook(), domain.SideBuy, 15)
	require.NoError(t, err)

	// Each level is priced gross of its venue's taker fee.
	wantNotional := 10*101.0*1.002 + 5*102.0*1.001
	assert.InDelta(t, wantNotional/15, got.ExpectedPrice, 1e-9)

	bare, err := New(0.1).Estimate(sampleBook(), domain.SideBuy, 15)
	require.NoError(t, err)
	assert.Greater(t, got.ExpectedPrice, bare.ExpectedPrice)
	assert.Greater(t, got.Slippage, bare.Slippage)
}

func TestEstimateSellFeesReduceProceeds(t *testing.T) {
	est := New(0.1).WithProfiles(profileMap{
		"alpha": {Venue: "alpha", TakerFee: 0.002},
	})

	got, err := est.Estimate(sampleBook(), domain.SideSell, 10)
	require.NoError(t, err)

	// The whole walk sits on alpha's 99 bid, net of the 20bps fee.
	assert.InDelta(t, 99.0*0.998, got.ExpectedPrice, 1e-9)
}

func TestImpactSquareRootScaling(t *testing.T) {
	est := New(0.1)
	book := sampleBook()

	small, err := est.Estimate(book, domain.SideBuy, 4)
	require.NoError(t, err)
	large, err := est.Estimate(book, domain.SideBuy, 16)
	require.NoError(t, err)

	// Quadrupling size doubles impact under the square-root law.
	assert.InDelta(t, 2.0, large.Impact/small.Impact, 1e-9)
}

func TestEstimateEmptyBook(t *testing.T) {
	est := New(0)
	empty := &domain.AggregatedBook{Asset: "BTC-USD"}

	got, err := est.Estimate(empty, domain.SideBuy, 5)
	var ile *domain.InsufficientLiquidityError
	require.ErrorAs(t, err, &ile)
	assert.InDelta(t, 5.0, got.Shortfall, 1e-9)
}
