package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
)

func TestFetchBookShape(t *testing.T) {
	v := New(Config{Name: "simx", BasePrice: 200, DepthLevels: 8, Seed: 1})

	book, err := v.FetchBook(context.Background(), "BTC-USD", 5)
	require.NoError(t, err)
	assert.Equal(t, "simx", book.Venue)
	require.Len(t, book.Bids, 5)
	require.Len(t, book.Asks, 5)

	// Bids below asks, each side moving away from the mid.
	assert.Less(t, book.Bids[0].Price, book.Asks[0].Price)
	for i := 0; i+1 < len(book.Bids); i++ {
		assert.Greater(t, book.Bids[i].Price, book.Bids[i+1].Price)
		assert.Less(t, book.Asks[i].Price, book.Asks[i+1].Price)
	}
}

func TestSubmitOrderFillsWithFee(t *testing.T) {
	v := New(Config{Name: "simx", BasePrice: 100, TakerFee: 0.001, Seed: 1})

	fill, err := v.SubmitOrder(context.Background(), "BTC-USD", domain.SideBuy, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, "simx", fill.Venue)
	assert.NotEmpty(t, fill.OrderID)
	assert.InDelta(t, 10.0, fill.Quantity, 1e-9)
	assert.InDelta(t, 100.0, fill.Price, 0.1)
	assert.InDelta(t, 0.001*10*fill.Price, fill.Fee, 1e-9)
}

func TestFailureRateAlwaysFails(t *testing.T) {
	v := New(Config{Name: "simx", FailureRate: 1.0, Seed: 1})

	_, err := v.FetchBook(context.Background(), "BTC-USD", 5)
	require.Error(t, err)
	_, err = v.SubmitOrder(context.Background(), "BTC-USD", domain.SideSell, 1, 100)
	require.Error(t, err)
}
