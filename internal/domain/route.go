package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side indicates whether the order buys or sells the asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Urgency expresses how quickly the caller needs the order done. It is one
// input to algorithm selection and never changes mid-route.
type Urgency string

const (
	UrgencyUrgent  Urgency = "urgent"
	UrgencyNormal  Urgency = "normal"
	UrgencyPatient Urgency = "patient"
)

// Algorithm identifies the execution strategy chosen for a route.
type Algorithm string

const (
	AlgorithmDirect Algorithm = "direct"
	AlgorithmTWAP   Algorithm = "twap"
	AlgorithmVWAP   Algorithm = "vwap"
)

// LegKind is the order type used for one leg.
type LegKind string

const (
	LegKindLimit  LegKind = "limit"
	LegKindMarket LegKind = "market"
)

// Leg is one atomic instruction to one venue. A Leg is owned by its Route
// until execution begins; after submission the in-flight tracker owns it.
type Leg struct {
	Venue      string  `json:"venue"`
	Side       Side    `json:"side"`
	Quantity   float64 `json:"quantity"`
	LimitPrice float64 `json:"limit_price"`
	Kind       LegKind `json:"kind"`
}

// Route is an execution plan. Creating a Route has no side effects; it is
// not executed until handed to the router's execution path.
type Route struct {
	ID               string    `json:"id"`
	Asset            string    `json:"asset"`
	Side             Side      `json:"side"`
	TotalQuantity    float64   `json:"total_quantity"`
	Legs             []Leg     `json:"legs"`
	AvgExpectedPrice float64   `json:"avg_expected_price"`
	ExpectedSlippage float64   `json:"expected_slippage"`
	ExpectedImpact   float64   `json:"expected_impact"`
	Algorithm        Algorithm `json:"algorithm"`
	CreatedAt        time.Time `json:"created_at"`
}

// QuantityEpsilon is the tolerance used when reconciling leg quantities
// against route totals.
const QuantityEpsilon = 1e-6

// Validate checks the leg-sum invariant: leg quantities must reconcile with
// the route total within floating-point tolerance.
func (r *Route) Validate() error {
	var sum float64
	for _, leg := range r.Legs {
		sum += leg.Quantity
	}
	if len(r.Legs) > 0 && math.Abs(sum-r.TotalQuantity) > QuantityEpsilon {
		return fmt.Errorf("route %s: leg quantities sum %.8f != total %.8f", r.ID, sum, r.TotalQuantity)
	}
	return nil
}

// RouteRequest is the caller-facing description of a desired trade.
type RouteRequest struct {
	Asset    string   `json:"asset"`
	Side     Side     `json:"side"`
	Quantity float64  `json:"quantity"`
	Urgency  Urgency  `json:"urgency"`
	Venues   []string `json:"venues"`
}

// Validate performs the pre-flight checks that must pass before any venue
// call is made. Failures are fatal and wrap ErrInvalidOrder.
func (r RouteRequest) Validate() error {
	if strings.TrimSpace(r.Asset) == "" {
		return fmt.Errorf("%w: empty asset", ErrInvalidOrder)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %.8f must be positive", ErrInvalidOrder, r.Quantity)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, r.Side)
	}
	switch r.Urgency {
	case UrgencyUrgent, UrgencyNormal, UrgencyPatient, "":
	default:
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidOrder, r.Urgency)
	}
	if len(r.Venues) == 0 {
		return fmt.Errorf("%w: no venues requested", ErrInvalidOrder)
	}
	return nil
}
