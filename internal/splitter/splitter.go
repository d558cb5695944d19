// Package splitter allocates a total order quantity across venues in
// proportion to each venue's visible liquidity. It deliberately favors
// predictability and parallel fill speed over marginal price improvement:
// this is a liquidity-proportional allocator, not a cost-optimal solver.
package splitter

import (
	"math"
	"sort"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Config holds the splitter's constraints.
type Config struct {
	// MinLegValue is the minimum notional (USD) for one leg. Venues whose
	// proportional share falls below it are skipped and their allocation
	// redistributed.
	MinLegValue float64
	// MaxLegs caps how many venues receive a leg; lowest-liquidity venues
	// beyond the cap are dropped. Defaults to 10.
	MaxLegs int
}

// Splitter builds per-venue legs from an aggregated book.
type Splitter struct {
	cfg      Config
	profiles domain.ProfileSource
}

// New creates a Splitter. A MaxLegs of zero or less falls back to 10.
func New(cfg Config) *Splitter {
	if cfg.MaxLegs <= 0 {
		cfg.MaxLegs = 10
	}
	return &Splitter{cfg: cfg}
}

// WithProfiles attaches venue reference data. A venue's MinOrderValue then
// raises its leg minimum above the global MinLegValue.
func (s *Splitter) WithProfiles(ps domain.ProfileSource) *Splitter {
	s.profiles = ps
	return s
}

// minFor returns the effective minimum leg notional for a venue: the larger
// of the global floor and the venue's own minimum order value.
func (s *Splitter) minFor(venue string) float64 {
	min := s.cfg.MinLegValue
	if s.profiles != nil {
		if p, ok := s.profiles.Profile(venue); ok && p.MinOrderValue > min {
			min = p.MinOrderValue
		}
	}
	return min
}

// venueLiquidity is one venue's summed visible notional on the relevant
// side, with its best price kept as the indicative leg price.
type venueLiquidity struct {
	venue     string
	value     float64
	bestPrice float64
}

// Split groups the book's relevant side by venue, sums visible notional per
// venue, and allocates quantity proportionally. Constraints applied in
// order: minimum leg value (skipped venues redistribute to the next-largest),
// max leg count (smallest dropped), and the rounding remainder appended to
// the single largest leg so totals reconcile exactly.
func (s *Splitter) Split(book *domain.AggregatedBook, side domain.Side, totalQuantity float64) ([]domain.Leg, error) {
	levels := book.SideLevels(side)
	if len(levels) == 0 || totalQuantity <= 0 {
		return nil, &domain.InsufficientLiquidityError{Requested: totalQuantity}
	}

	venues := rankVenues(levels, side)
	if len(venues) > s.cfg.MaxLegs {
		venues = venues[:s.cfg.MaxLegs]
	}

	var totalValue float64
	for _, v := range venues {
		totalValue += v.value
	}
	if totalValue <= 0 {
		return nil, &domain.InsufficientLiquidityError{Requested: totalQuantity}
	}

	// Proportional pass. A venue whose share is worth less than its minimum
	// hands the whole share to the next-largest venue above it, cascading
	// toward the deepest venue when several fall short in a row.
	legs := s.allocate(venues, side, totalQuantity, totalValue)
	if len(legs) == 0 {
		// Every share fell under the minimum: put the whole order on the
		// single deepest venue rather than refusing to route.
		best := venues[0]
		legs = []domain.Leg{{
			Venue:      best.venue,
			Side:       side,
			Quantity:   totalQuantity,
			LimitPrice: best.bestPrice,
			Kind:       domain.LegKindLimit,
		}}
	}

	reconcile(legs, totalQuantity)
	return legs, nil
}

// allocate distributes quantity proportionally over the ranked venues, then
// walks the allocations smallest-first: a leg worth less than the venue's
// minimum is zeroed and its quantity added to the next-largest venue. If even
// the deepest venue ends below its minimum the result is empty and the caller
// falls back to a single leg.
func (s *Splitter) allocate(venues []venueLiquidity, side domain.Side, totalQuantity, totalValue float64) []domain.Leg {
	alloc := make([]float64, len(venues))
	for i, v := range venues {
		alloc[i] = totalQuantity * (v.value / totalValue)
	}

	for i := len(venues) - 1; i >= 1; i-- {
		if min := s.minFor(venues[i].venue); min > 0 && alloc[i]*venues[i].bestPrice < min {
			alloc[i-1] += alloc[i]
			alloc[i] = 0
		}
	}
	// The deepest venue has no larger neighbor. If its own minimum is not
	// met, its share moves to the largest surviving leg instead.
	if min := s.minFor(venues[0].venue); min > 0 && alloc[0]*venues[0].bestPrice < min {
		moved := false
		for i := 1; i < len(venues); i++ {
			if alloc[i] > 0 {
				alloc[i] += alloc[0]
				moved = true
				break
			}
		}
		alloc[0] = 0
		if !moved {
			return nil
		}
	}

	legs := make([]domain.Leg, 0, len(venues))
	for i, v := range venues {
		if alloc[i] <= 0 {
			continue
		}
		legs = append(legs, domain.Leg{
			Venue:      v.venue,
			Side:       side,
			Quantity:   alloc[i],
			LimitPrice: v.bestPrice,
			Kind:       domain.LegKindLimit,
		})
	}
	return legs
}

// rankVenues sums visible notional per venue on one side and orders venues
// deepest-first. The best price per venue is the highest bid or lowest ask
// seen for it, depending on side.
func rankVenues(levels []domain.PriceLevel, side domain.Side) []venueLiquidity {
	byVenue := make(map[string]*venueLiquidity)
	for _, l := range levels {
		v, ok := byVenue[l.Venue]
		if !ok {
			v = &venueLiquidity{venue: l.Venue, bestPrice: l.Price}
			byVenue[l.Venue] = v
		}
		v.value += l.Value()
		if side == domain.SideBuy && l.Price < v.bestPrice {
			v.bestPrice = l.Price
		}
		if side == domain.SideSell && l.Price > v.bestPrice {
			v.bestPrice = l.Price
		}
	}

	ranked := make([]venueLiquidity, 0, len(byVenue))
	for _, v := range byVenue {
		ranked = append(ranked, *v)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].value != ranked[j].value {
			return ranked[i].value > ranked[j].value
		}
		return ranked[i].venue < ranked[j].venue
	})
	return ranked
}

// reconcile pins the quantity sum exactly to the total by folding the
// floating-point remainder into the largest leg.
func reconcile(legs []domain.Leg, totalQuantity float64) {
	var sum float64
	largest := 0
	for i, l := range legs {
		sum += l.Quantity
		if l.Quantity > legs[largest].Quantity {
			largest = i
		}
	}
	if diff := totalQuantity - sum; math.Abs(diff) > 0 {
		legs[largest].Quantity += diff
	}
}
