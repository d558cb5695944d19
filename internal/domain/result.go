package domain

import (
	"math"
	"time"
)

// Fill is the confirmed result of one executed leg or clip. Immutable record.
type Fill struct {
	Venue     string    `json:"venue"`
	OrderID   string    `json:"order_id"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionStatus tracks the lifecycle of one route execution. Transitions
// are monotonic: Pending -> Executing -> one terminal status.
type ExecutionStatus string

const (
	StatusPending         ExecutionStatus = "pending"
	StatusExecuting       ExecutionStatus = "executing"
	StatusPartiallyFilled ExecutionStatus = "partially_filled"
	StatusCompleted       ExecutionStatus = "completed"
	StatusFailed          ExecutionStatus = "failed"
)

// rank orders statuses for the monotonic-transition guard. Terminal statuses
// share a rank; once reached, the status never changes again.
func (s ExecutionStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusExecuting:
		return 1
	case StatusPartiallyFilled, StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	return s.rank() == 2
}

// ExecutionResult accumulates fills and errors while a route executes and is
// finalized (immutable) when execution ends. Mutation is reserved to the
// executing component; parallel writers must serialize through their own
// lock, the struct itself is not concurrency-safe.
type ExecutionResult struct {
	RouteID          string          `json:"route_id"`
	Asset            string          `json:"asset"`
	Side             Side            `json:"side"`
	Algorithm        Algorithm       `json:"algorithm"`
	Status           ExecutionStatus `json:"status"`
	FilledQuantity   float64         `json:"filled_quantity"`
	TargetQuantity   float64         `json:"target_quantity"`
	AvgFillPrice     float64         `json:"avg_fill_price"`
	ExpectedPrice    float64         `json:"expected_price"`
	RealizedSlippage float64         `json:"realized_slippage"`
	TotalFees        float64         `json:"total_fees"`
	StartedAt        time.Time       `json:"started_at"`
	ElapsedTime      time.Duration   `json:"elapsed_ns"`
	Fills            []Fill          `json:"fills"`
	Errors           []string        `json:"errors,omitempty"`
}

// NewExecutionResult creates a Pending result for the given route.
func NewExecutionResult(route *Route) *ExecutionResult {
	return &ExecutionResult{
		RouteID:        route.ID,
		Asset:          route.Asset,
		Side:           route.Side,
		Algorithm:      route.Algorithm,
		Status:         StatusPending,
		TargetQuantity: route.TotalQuantity,
		ExpectedPrice:  route.AvgExpectedPrice,
		StartedAt:      time.Now().UTC(),
	}
}

// SetStatus applies a monotonic status transition. Attempts to move backwards
// or away from a terminal status are ignored.
func (r *ExecutionResult) SetStatus(s ExecutionStatus) {
	if r.Status.Terminal() || s.rank() < r.Status.rank() {
		return
	}
	r.Status = s
}

// AddFill appends a fill and updates the filled quantity and fee totals.
// Fills are append-only; order of arrival is the order recorded.
func (r *ExecutionResult) AddFill(f Fill) {
	r.Fills = append(r.Fills, f)
	r.FilledQuantity += f.Quantity
	r.TotalFees += f.Fee
}

// AddError records a recoverable execution error without aborting siblings.
func (r *ExecutionResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// FillRate returns filledQuantity / targetQuantity, zero when the target is
// zero.
func (r *ExecutionResult) FillRate() float64 {
	if r.TargetQuantity <= 0 {
		return 0
	}
	return r.FilledQuantity / r.TargetQuantity
}

// Finalize computes the derived price fields, stamps elapsed time, and sets
// the terminal status: Completed when fully filled with no errors,
// PartiallyFilled for any partial fill, Failed when nothing filled.
func (r *ExecutionResult) Finalize() {
	r.ElapsedTime = time.Since(r.StartedAt)

	var notional float64
	for _, f := range r.Fills {
		notional += f.Price * f.Quantity
	}
	if r.FilledQuantity > 0 {
		r.AvgFillPrice = notional / r.FilledQuantity
	}
	if r.ExpectedPrice > 0 && r.AvgFillPrice > 0 {
		r.RealizedSlippage = math.Abs(r.AvgFillPrice-r.ExpectedPrice) / r.ExpectedPrice
	}

	switch {
	case r.FilledQuantity >= r.TargetQuantity-QuantityEpsilon && len(r.Errors) == 0:
		r.SetStatus(StatusCompleted)
	case r.FilledQuantity > 0:
		r.SetStatus(StatusPartiallyFilled)
	default:
		r.SetStatus(StatusFailed)
	}
}
