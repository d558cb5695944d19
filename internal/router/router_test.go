package router

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/book"
	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/estimator"
	"github.com/quantbot/smartrouter/internal/splitter"
	"github.com/quantbot/smartrouter/internal/venue/venuetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// deepRegistry builds three venues quoting around 100 with deep books so
// impact stays negligible unless a test shrinks liquidity.
func deepRegistry() venuetest.Registry {
	mk := func(name string, bid, ask, qty float64) *venuetest.MockVenue {
		return venuetest.New(name, domain.VenueBook{
			Bids: []domain.PriceLevel{{Price: bid, Quantity: qty}},
			Asks: []domain.PriceLevel{{Price: ask, Quantity: qty}},
		})
	}
	return venuetest.Registry{
		"alpha": mk("alpha", 99.5, 100.5, 100_000),
		"beta":  mk("beta", 99.4, 100.6, 100_000),
		"gamma": mk("gamma", 99.3, 100.7, 100_000),
	}
}

func newTestRouter(reg venuetest.Registry, cfg Config) *Router {
	agg := book.NewAggregator(reg, book.Config{FetchTimeout: time.Second}, testLogger())
	return New(
		agg,
		estimator.New(0.1),
		splitter.New(splitter.Config{}),
		reg,
		cfg,
		NewStats(),
		testLogger(),
	)
}

func fastConfig() Config {
	return Config{
		SmallOrderThresholdUSD: 10_000,
		LargeOrderThresholdUSD: 250_000,
		ImpactThreshold:        0.02,
		TWAPInterval:           time.Millisecond,
		TWAPBaseDuration:       4 * time.Millisecond,
		VWAPBucketDuration:     2 * time.Millisecond,
		VWAPSubIntervals:       1,
		ParticipationRate:      0.10,
		LegTimeout:             time.Second,
	}
}

func request(qty float64, urgency domain.Urgency) domain.RouteRequest {
	return domain.RouteRequest{
		Asset:    "BTC-USD",
		Side:     domain.SideBuy,
		Quantity: qty,
		Urgency:  urgency,
		Venues:   []string{"alpha", "beta", "gamma"},
	}
}

func TestRouteInvalidOrderIsFatal(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	_, err := r.Route(context.Background(), request(0, domain.UrgencyNormal))
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.Zero(t, r.Stats().OrderCount, "no venue call, no stats")
}

func TestRouteAllVenuesDownIsFatal(t *testing.T) {
	reg := deepRegistry()
	for _, v := range reg {
		v.FetchErr = errors.New("down")
	}
	r := newTestRouter(reg, fastConfig())

	res, err := r.Route(context.Background(), request(10, domain.UrgencyNormal))
	assert.Nil(t, res)
	require.ErrorIs(t, err, domain.ErrNoVenuesResponded)
	for _, v := range reg {
		assert.Zero(t, v.CallCount("SubmitOrder"))
	}
}

func TestRouteSmallOrderGoesDirect(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	// 50 units around $100 is $5k, under the small-order threshold.
	res, err := r.Route(context.Background(), request(50, domain.UrgencyNormal))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmDirect, res.Algorithm)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.InDelta(t, 50.0, res.FilledQuantity, domain.QuantityEpsilon)
}

func TestRouteUrgentAlwaysDirect(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	// $50k order would be TWAP/VWAP territory, but urgency wins.
	res, err := r.Route(context.Background(), request(500, domain.UrgencyUrgent))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmDirect, res.Algorithm)
}

func TestRoutePatientMidSizeGoesTWAP(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	res, err := r.Route(context.Background(), request(500, domain.UrgencyPatient))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmTWAP, res.Algorithm)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.InDelta(t, 500.0, res.FilledQuantity, domain.QuantityEpsilon)
	assert.Greater(t, len(res.Fills), 1, "time-sliced execution produces multiple fills")
}

func TestRouteLargeOrderGoesVWAP(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	// 5000 units around $100 is $500k, over the large-order threshold.
	res, err := r.Route(context.Background(), request(5000, domain.UrgencyNormal))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmVWAP, res.Algorithm)
	assert.Greater(t, len(res.Fills), 1)
}

func TestRouteHighImpactGoesVWAP(t *testing.T) {
	reg := deepRegistry()
	for _, v := range reg {
		// Thin books: a $50k order against ~$30k of visible liquidity.
		v.Book.Bids[0].Quantity = 100
		v.Book.Asks[0].Quantity = 100
	}
	r := newTestRouter(reg, fastConfig())

	res, err := r.Route(context.Background(), request(500, domain.UrgencyNormal))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmVWAP, res.Algorithm)
}

func TestRouteNormalMidSizeGoesDirect(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	// Mid-size, low impact, normal urgency: the fall-through direct path.
	res, err := r.Route(context.Background(), request(500, domain.UrgencyNormal))
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmDirect, res.Algorithm)
}

func TestRouteOneLegFailureIsPartial(t *testing.T) {
	reg := deepRegistry()
	reg["gamma"].SubmitErr = errors.New("order rejected")
	r := newTestRouter(reg, fastConfig())

	res, err := r.Route(context.Background(), request(60, domain.UrgencyUrgent))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartiallyFilled, res.Status)
	assert.InDelta(t, 2.0/3.0, res.FillRate(), 0.05)
	assert.Len(t, res.Errors, 1)
}

func TestRoutePartialBookIsRecordedNotFatal(t *testing.T) {
	reg := deepRegistry()
	reg["gamma"].FetchErr = errors.New("timeout")
	r := newTestRouter(reg, fastConfig())

	res, err := r.Route(context.Background(), request(50, domain.UrgencyNormal))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "partial book")
	assert.NotEqual(t, domain.StatusCompleted, res.Status)
}

func TestRouteFillsRecordedInCompletionOrder(t *testing.T) {
	reg := deepRegistry()
	reg["alpha"].Delay = 30 * time.Millisecond // largest venue responds last
	r := newTestRouter(reg, fastConfig())

	res, err := r.Route(context.Background(), request(60, domain.UrgencyUrgent))
	require.NoError(t, err)
	require.Len(t, res.Fills, 3)
	assert.Equal(t, "alpha", res.Fills[2].Venue)
}

func TestRouteStatsAccumulate(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	for i := 0; i < 3; i++ {
		_, err := r.Route(context.Background(), request(50, domain.UrgencyUrgent))
		require.NoError(t, err)
	}

	snap := r.Stats()
	assert.Equal(t, int64(3), snap.OrderCount)
	assert.Equal(t, int64(3), snap.ByAlgorithm[string(domain.AlgorithmDirect)])
	assert.Greater(t, snap.TotalVolumeUSD, 0.0)
}

func TestRouteDuplicateRequestRejected(t *testing.T) {
	cfg := fastConfig()
	cfg.DedupWindow = time.Minute
	r := newTestRouter(deepRegistry(), cfg)

	_, err := r.Route(context.Background(), request(50, domain.UrgencyNormal))
	require.NoError(t, err)

	_, err = r.Route(context.Background(), request(50, domain.UrgencyNormal))
	require.ErrorIs(t, err, domain.ErrDuplicateRoute)

	// A different quantity is a different order.
	_, err = r.Route(context.Background(), request(51, domain.UrgencyNormal))
	assert.NoError(t, err)
}

func TestRouteResultHookReceivesFinalizedResult(t *testing.T) {
	r := newTestRouter(deepRegistry(), fastConfig())

	var published *domain.ExecutionResult
	r.OnResult(func(res *domain.ExecutionResult) { published = res })

	res, err := r.Route(context.Background(), request(50, domain.UrgencyUrgent))
	require.NoError(t, err)

	require.NotNil(t, published, "result hook not invoked")
	assert.Same(t, res, published)
	assert.Equal(t, domain.StatusCompleted, published.Status)
	assert.NotZero(t, published.ElapsedTime, "hook must run after Finalize")
}

func TestRouteProfileFeesRaiseExpectedPrice(t *testing.T) {
	reg := deepRegistry()
	for _, v := range reg {
		v.Profile = domain.VenueProfile{Venue: v.VenueName, TakerFee: 0.002}
	}
	plain := newTestRouter(deepRegistry(), fastConfig())
	feeAware := newTestRouter(reg, fastConfig())
	feeAware.est = estimator.New(0.1).WithProfiles(reg)

	base, err := plain.Route(context.Background(), request(50, domain.UrgencyUrgent))
	require.NoError(t, err)
	withFees, err := feeAware.Route(context.Background(), request(50, domain.UrgencyUrgent))
	require.NoError(t, err)

	assert.Greater(t, withFees.ExpectedPrice, base.ExpectedPrice)
}
