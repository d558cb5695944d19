package domain

import "context"

// VenueClient is the capability through which the router talks to one
// trading venue. Any adapter satisfying it (simulated, REST, websocket-fed)
// plugs in without router changes; routing logic never branches on the
// concrete implementation.
type VenueClient interface {
	// Name returns the venue identifier used in price levels and legs.
	Name() string
	// FetchBook returns the top depth levels of both sides for the asset.
	FetchBook(ctx context.Context, asset string, depth int) (VenueBook, error)
	// SubmitOrder sends one order and blocks until the venue acknowledges
	// the fill or rejects it.
	SubmitOrder(ctx context.Context, asset string, side Side, quantity, price float64) (Fill, error)
}

// ClientSource resolves venue names to clients. Implemented by the venue
// registry; consumed by the aggregator, the executors, and the router.
type ClientSource interface {
	Client(name string) (VenueClient, bool)
	Names() []string
}

// VenueProfile is static-ish reference data for one venue. Read-only during
// routing; refreshed out-of-band between routing decisions.
type VenueProfile struct {
	Venue         string  `json:"venue"`
	MakerFee      float64 `json:"maker_fee"`
	TakerFee      float64 `json:"taker_fee"`
	MinOrderValue float64 `json:"min_order_value"`
	LatencyMs     int     `json:"latency_ms"`
}

// ProfileSource provides venue reference data to the estimator and splitter.
type ProfileSource interface {
	Profile(name string) (VenueProfile, bool)
}
