package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoute(total float64) *Route {
	return &Route{
		ID:               "r-1",
		Asset:            "BTC-USD",
		Side:             SideBuy,
		TotalQuantity:    total,
		AvgExpectedPrice: 100,
		Algorithm:        AlgorithmDirect,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestFinalizeCompleted(t *testing.T) {
	res := NewExecutionResult(testRoute(10))
	res.SetStatus(StatusExecuting)
	res.AddFill(Fill{Venue: "a", Quantity: 4, Price: 100, Fee: 0.4})
	res.AddFill(Fill{Venue: "b", Quantity: 6, Price: 101, Fee: 0.6})
	res.Finalize()

	require.Equal(t, StatusCompleted, res.Status)
	assert.InDelta(t, 10.0, res.FilledQuantity, QuantityEpsilon)
	assert.InDelta(t, 1.0, res.FillRate(), QuantityEpsilon)
	assert.InDelta(t, 100.6, res.AvgFillPrice, 1e-9)
	assert.InDelta(t, 1.0, res.TotalFees, 1e-9)
	assert.Empty(t, res.Errors)
}

func TestFinalizePartialOnLegError(t *testing.T) {
	res := NewExecutionResult(testRoute(30))
	res.SetStatus(StatusExecuting)
	res.AddFill(Fill{Venue: "a", Quantity: 10, Price: 100})
	res.AddFill(Fill{Venue: "b", Quantity: 10, Price: 100})
	res.AddError(&LegExecutionError{Venue: "c", Err: errors.New("timeout")})
	res.Finalize()

	assert.Equal(t, StatusPartiallyFilled, res.Status)
	assert.InDelta(t, 2.0/3.0, res.FillRate(), 0.01)
	assert.Len(t, res.Errors, 1)
}

func TestFinalizeFailedWhenNothingFilled(t *testing.T) {
	res := NewExecutionResult(testRoute(5))
	res.SetStatus(StatusExecuting)
	res.AddError(errors.New("venue down"))
	res.Finalize()

	assert.Equal(t, StatusFailed, res.Status)
	assert.Zero(t, res.FillRate())
}

func TestFinalizeFullFillWithErrorsIsNotCompleted(t *testing.T) {
	// Round-trip property: Completed implies empty errors.
	res := NewExecutionResult(testRoute(10))
	res.SetStatus(StatusExecuting)
	res.AddFill(Fill{Venue: "a", Quantity: 10, Price: 100})
	res.AddError(errors.New("late book fetch failure"))
	res.Finalize()

	assert.NotEqual(t, StatusCompleted, res.Status)
	assert.Equal(t, StatusPartiallyFilled, res.Status)
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	res := NewExecutionResult(testRoute(1))
	res.SetStatus(StatusExecuting)
	res.SetStatus(StatusPending) // backwards, ignored
	assert.Equal(t, StatusExecuting, res.Status)

	res.SetStatus(StatusCompleted)
	res.SetStatus(StatusFailed) // terminal, ignored
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestRouteLegSumInvariant(t *testing.T) {
	r := testRoute(20)
	r.Legs = []Leg{
		{Venue: "a", Side: SideBuy, Quantity: 4},
		{Venue: "b", Side: SideBuy, Quantity: 16},
	}
	require.NoError(t, r.Validate())

	r.Legs[0].Quantity = 5
	require.Error(t, r.Validate())
}

func TestRouteRequestValidate(t *testing.T) {
	req := RouteRequest{Asset: "BTC-USD", Side: SideBuy, Quantity: 1, Urgency: UrgencyNormal, Venues: []string{"a"}}
	require.NoError(t, req.Validate())

	for _, bad := range []RouteRequest{
		{Asset: "", Side: SideBuy, Quantity: 1, Venues: []string{"a"}},
		{Asset: "BTC-USD", Side: SideBuy, Quantity: 0, Venues: []string{"a"}},
		{Asset: "BTC-USD", Side: "hold", Quantity: 1, Venues: []string{"a"}},
		{Asset: "BTC-USD", Side: SideBuy, Quantity: 1, Urgency: "rushed", Venues: []string{"a"}},
		{Asset: "BTC-USD", Side: SideBuy, Quantity: 1, Venues: nil},
	} {
		err := bad.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
}
