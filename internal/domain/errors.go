package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOrder      = errors.New("invalid order parameters")
	ErrNoVenuesResponded = errors.New("no venues responded")
	ErrDuplicateRoute    = errors.New("duplicate route request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrContextDone       = errors.New("context cancelled")
)

// PartialBookError reports that one or more venues failed to deliver a book
// snapshot. The aggregated book built from the venues that did respond is
// still usable; callers decide whether to proceed with reduced depth.
type PartialBookError struct {
	Missing []string
}

func (e *PartialBookError) Error() string {
	return fmt.Sprintf("partial book: %d venue(s) missing: %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// InsufficientLiquidityError reports that the visible book could not absorb
// the full requested quantity. Estimation continues with penalty pricing for
// the shortfall, so this error is informational rather than fatal.
type InsufficientLiquidityError struct {
	Requested float64
	Available float64
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity: requested %.4f, visible %.4f",
		e.Requested, e.Available)
}

// LegExecutionError wraps the failure of a single leg or clip submission.
// Sibling legs are unaffected; the error is recorded on the ExecutionResult.
type LegExecutionError struct {
	Venue string
	Err   error
}

func (e *LegExecutionError) Error() string {
	return fmt.Sprintf("leg execution on %s: %v", e.Venue, e.Err)
}

func (e *LegExecutionError) Unwrap() error { return e.Err }
