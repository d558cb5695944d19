package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbot/smartrouter/internal/domain"
)

func dialHub(t *testing.T) (*Hub, *websocket.Conn, context.CancelFunc) {
	t.Helper()

	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return hub, conn, cancel
}

func TestHubBroadcastsFills(t *testing.T) {
	hub, conn, cancel := dialHub(t)
	defer cancel()

	// Registration races the publish; give the hub a beat to admit the client.
	time.Sleep(50 * time.Millisecond)

	fill := domain.Fill{Venue: "alpha", OrderID: "alpha-1", Quantity: 5, Price: 100.5}
	hub.PublishFill("route-1", fill)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string      `json:"type"`
		RouteID string      `json:"route_id"`
		Data    domain.Fill `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "fill", ev.Type)
	assert.Equal(t, "route-1", ev.RouteID)
	assert.Equal(t, "alpha-1", ev.Data.OrderID)
	assert.InDelta(t, 5.0, ev.Data.Quantity, 1e-9)
}

func TestHubBroadcastsExecutionResults(t *testing.T) {
	hub, conn, cancel := dialHub(t)
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	res := &domain.ExecutionResult{
		RouteID:        "route-2",
		Asset:          "BTC-USD",
		Status:         domain.StatusCompleted,
		FilledQuantity: 12,
	}
	hub.PublishResult(res)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string                 `json:"type"`
		RouteID string                 `json:"route_id"`
		Data    domain.ExecutionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "execution", ev.Type)
	assert.Equal(t, "route-2", ev.RouteID)
	assert.Equal(t, domain.StatusCompleted, ev.Data.Status)
	assert.InDelta(t, 12.0, ev.Data.FilledQuantity, 1e-9)
}

func TestHubShutdownClosesClients(t *testing.T) {
	_, conn, cancel := dialHub(t)

	time.Sleep(50 * time.Millisecond)
	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection should be closed by the hub")
}
