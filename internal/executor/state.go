// Package executor implements the time-sliced (TWAP) and volume-sliced
// (VWAP) execution strategies. Each executor run is one sequential control
// loop: clips are released in order at a paced cadence, so correctness
// depends on never parallelizing clips within a single run. Independent
// orders may each run their own loop concurrently.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantbot/smartrouter/internal/domain"
)

// State is the lifecycle of one executor run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// stateMachine guards the Idle -> Running -> terminal transitions shared by
// TWAP and VWAP.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

func newStateMachine() *stateMachine {
	return &stateMachine{state: StateIdle}
}

// State returns the current state.
func (m *stateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// start moves Idle -> Running; any other origin is an error so a single
// executor instance cannot be reused mid-flight.
func (m *stateMachine) start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("executor: cannot start from state %q", m.state)
	}
	m.state = StateRunning
	return nil
}

// finish moves Running to the given terminal state; later calls are no-ops.
func (m *stateMachine) finish(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRunning {
		m.state = s
	}
}

// BookSource supplies fresh aggregated books; each clip re-aggregates so it
// routes against current liquidity, never a stale snapshot.
type BookSource interface {
	Aggregate(ctx context.Context, asset string, venues []string) (*domain.AggregatedBook, error)
}

// FillHook observes fills as they are appended. Optional; used to stream
// execution progress to subscribers.
type FillHook func(routeID string, fill domain.Fill)

// bestVenueLevel picks the level currently offering the best price for the
// side: lowest ask when buying, highest bid when selling.
func bestVenueLevel(book *domain.AggregatedBook, side domain.Side) (domain.PriceLevel, bool) {
	if side == domain.SideBuy {
		l := book.BestAsk()
		return l, l.Price > 0
	}
	l := book.BestBid()
	return l, l.Price > 0
}
