// Package estimator predicts execution price deviation and market impact
// for a prospective order against an aggregated book, before any capital is
// committed.
package estimator

import (
	"math"

	"github.com/quantbot/smartrouter/internal/domain"
)

// DefaultImpactCoefficient is the k in the square-root impact model. It is
// a heuristic, not a calibrated constant; operators tune it per deployment.
const DefaultImpactCoefficient = 0.1

// shortfallPenalty is applied to quantity the visible book cannot absorb:
// the remainder is charged 1% worse than the worst observed level. A
// conservative penalty, not a real quote.
const shortfallPenalty = 0.01

// Estimate is the outcome of one estimation pass. Pure function of the
// (immutable) book and quantity, so repeated calls are identical.
type Estimate struct {
	// Slippage is |vwap - mid| / mid for the walked quantity.
	Slippage float64
	// Impact follows the square-root law: k * sqrt(orderValue / visibleLiquidity).
	Impact float64
	// ExpectedPrice is the volume-weighted average price of the walk,
	// net of per-venue taker fees when a profile source is attached.
	ExpectedPrice float64
	// Shortfall is the quantity the visible book could not absorb.
	Shortfall float64
}

// Estimator walks aggregated books to produce pre-trade cost estimates.
type Estimator struct {
	k        float64
	profiles domain.ProfileSource
}

// New creates an Estimator with the given impact coefficient; values <= 0
// fall back to DefaultImpactCoefficient.
func New(k float64) *Estimator {
	if k <= 0 {
		k = DefaultImpactCoefficient
	}
	return &Estimator{k: k}
}

// WithProfiles attaches venue reference data so the walk prices each level
// net of that venue's taker fee. Without a source, estimates are fee-free.
func (e *Estimator) WithProfiles(ps domain.ProfileSource) *Estimator {
	e.profiles = ps
	return e
}

// effectivePrice adjusts a level's price for the venue's taker fee: buyers
// pay the fee on top, sellers receive the price net of it.
func (e *Estimator) effectivePrice(venue string, price float64, side domain.Side) float64 {
	if e.profiles == nil {
		return price
	}
	p, ok := e.profiles.Profile(venue)
	if !ok || p.TakerFee == 0 {
		return price
	}
	if side == domain.SideSell {
		return price * (1 - p.TakerFee)
	}
	return price * (1 + p.TakerFee)
}

// Estimate walks the relevant side of the book (asks when buying, bids when
// selling) from best price outward, accumulating quantity until the request
// is filled or liquidity is exhausted. Any shortfall is priced at
// shortfallPenalty worse than the worst observed level, and reported via a
// *domain.InsufficientLiquidityError alongside otherwise valid numbers; the
// caller records it and proceeds.
func (e *Estimator) Estimate(book *domain.AggregatedBook, side domain.Side, quantity float64) (Estimate, error) {
	levels := book.SideLevels(side)
	mid := book.MidPrice()
	if len(levels) == 0 || quantity <= 0 || mid <= 0 {
		return Estimate{Shortfall: quantity}, &domain.InsufficientLiquidityError{Requested: quantity}
	}

	var (
		remaining = quantity
		notional  float64
		worst     float64
		visible   float64
	)
	for _, l := range levels {
		visible += l.Value()
		if remaining <= 0 {
			continue
		}
		take := math.Min(remaining, l.Quantity)
		price := e.effectivePrice(l.Venue, l.Price, side)
		notional += take * price
		remaining -= take
		worst = price
	}

	if remaining > domain.QuantityEpsilon {
		penalized := worst * (1 + shortfallPenalty)
		if side == domain.SideSell {
			penalized = worst * (1 - shortfallPenalty)
		}
		notional += remaining * penalized
	} else {
		remaining = 0
	}

	vwap := notional / quantity
	est := Estimate{
		Slippage:      math.Abs(vwap-mid) / mid,
		ExpectedPrice: vwap,
		Shortfall:     remaining,
	}
	if visible > 0 {
		est.Impact = e.k * math.Sqrt(quantity*mid/visible)
	}

	if remaining > 0 {
		return est, &domain.InsufficientLiquidityError{
			Requested: quantity,
			Available: quantity - remaining,
		}
	}
	return est, nil
}
