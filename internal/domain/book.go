package domain

import "time"

// PriceLevel is one depth level at one venue. Immutable once observed.
type PriceLevel struct {
	Venue    string  `json:"venue"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Value returns the notional of the level (price * quantity).
func (l PriceLevel) Value() float64 {
	return l.Price * l.Quantity
}

// VenueBook is the raw depth snapshot fetched from a single venue.
type VenueBook struct {
	Venue string
	Bids  []PriceLevel
	Asks  []PriceLevel
}

// AggregatedBook merges per-venue snapshots into one sorted view. Bids are
// sorted price-descending, asks price-ascending, each level tagged with its
// originating venue. Liquidity at the same nominal price is never netted
// across venues. Snapshots are constructed fresh per routing decision and
// never mutated afterwards; refresh means replace.
type AggregatedBook struct {
	Asset      string       `json:"asset"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	ObservedAt time.Time    `json:"observed_at"`
}

// BestBid returns the highest bid, or the zero level if the side is empty.
func (b *AggregatedBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the lowest ask, or the zero level if the side is empty.
func (b *AggregatedBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	return b.Asks[0]
}

// MidPrice returns the midpoint of best bid and best ask. When one side is
// empty the other side's best price is used; an empty book yields zero.
func (b *AggregatedBook) MidPrice() float64 {
	bid, ask := b.BestBid().Price, b.BestAsk().Price
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case bid > 0:
		return bid
	default:
		return ask
	}
}

// Spread returns (bestAsk - bestBid) / mid, or zero when undefined.
func (b *AggregatedBook) Spread() float64 {
	mid := b.MidPrice()
	if mid == 0 {
		return 0
	}
	bid, ask := b.BestBid().Price, b.BestAsk().Price
	if bid == 0 || ask == 0 {
		return 0
	}
	return (ask - bid) / mid
}

// SideLevels returns the levels relevant to executing the given side: asks
// when buying, bids when selling.
func (b *AggregatedBook) SideLevels(side Side) []PriceLevel {
	if side == SideBuy {
		return b.Asks
	}
	return b.Bids
}
