package router

import (
	"sync"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Stats is the router's rolling counter set: total volume routed, order
// count, running average slippage, and per-algorithm order counts. It is an
// explicitly owned, mutex-guarded object passed into the router at
// construction; there is no module-level state.
type Stats struct {
	mu             sync.Mutex
	totalVolumeUSD float64
	orderCount     int64
	slippageSum    float64
	slippageCount  int64
	byAlgorithm    map[domain.Algorithm]int64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{byAlgorithm: make(map[domain.Algorithm]int64)}
}

// Record folds a finalized execution result into the counters.
func (s *Stats) Record(res *domain.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderCount++
	s.byAlgorithm[res.Algorithm]++
	s.totalVolumeUSD += res.FilledQuantity * res.AvgFillPrice
	if res.FilledQuantity > 0 {
		s.slippageSum += res.RealizedSlippage
		s.slippageCount++
	}
}

// Snapshot is a read-only copy of the counters, JSON-ready for the stats
// endpoint.
type Snapshot struct {
	TotalVolumeUSD float64          `json:"total_volume_usd"`
	OrderCount     int64            `json:"order_count"`
	AvgSlippage    float64          `json:"avg_slippage"`
	ByAlgorithm    map[string]int64 `json:"by_algorithm"`
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalVolumeUSD: s.totalVolumeUSD,
		OrderCount:     s.orderCount,
		ByAlgorithm:    make(map[string]int64, len(s.byAlgorithm)),
	}
	if s.slippageCount > 0 {
		snap.AvgSlippage = s.slippageSum / float64(s.slippageCount)
	}
	for alg, n := range s.byAlgorithm {
		snap.ByAlgorithm[string(alg)] = n
	}
	return snap
}
