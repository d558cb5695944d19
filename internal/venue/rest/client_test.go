package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
)

func TestFetchBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "BTC-USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5", r.URL.Query().Get("depth"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"bids": [][2]float64{{99.5, 10}, {99.0, 20}},
			"asks": [][2]float64{{100.5, 5}},
		})
	}))
	defer srv.Close()

	c := NewClient("acme", srv.URL, "k")
	book, err := c.FetchBook(context.Background(), "BTC-USD", 5)
	require.NoError(t, err)
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "acme", book.Bids[0].Venue)
	assert.Equal(t, 99.5, book.Bids[0].Price)
	assert.Equal(t, 10.0, book.Bids[0].Quantity)
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "buy", req["side"])
		assert.Equal(t, 3.0, req["quantity"])

		json.NewEncoder(w).Encode(map[string]any{
			"order_id":        "ord-1",
			"filled_quantity": 3.0,
			"filled_price":    100.25,
			"fee":             0.3,
			"status":          "filled",
		})
	}))
	defer srv.Close()

	c := NewClient("acme", srv.URL, "")
	fill, err := c.SubmitOrder(context.Background(), "BTC-USD", domain.SideBuy, 3, 100.5)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", fill.OrderID)
	assert.Equal(t, 3.0, fill.Quantity)
	assert.Equal(t, 100.25, fill.Price)
}

func TestSubmitOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "rejected"})
	}))
	defer srv.Close()

	c := NewClient("acme", srv.URL, "")
	_, err := c.SubmitOrder(context.Background(), "BTC-USD", domain.SideSell, 1, 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("acme", srv.URL, "")
	_, err := c.FetchBook(context.Background(), "BTC-USD", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
