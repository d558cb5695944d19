// Package sim implements a simulated venue for paper trading and load
// testing: a synthetic book random-walking around a base price, with
// configurable depth, latency, and failure rate.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Config describes one simulated venue.
type Config struct {
	Name        string
	BasePrice   float64
	SpreadBps   float64 // full spread in basis points of the base price
	DepthLevels int     // levels generated per side
	LevelSize   float64 // quantity per level
	LatencyMs   int     // artificial call latency
	FailureRate float64 // probability in [0,1] that a call fails
	TakerFee    float64 // fee fraction applied to fills
	Seed        int64   // 0 means time-seeded
}

// Venue is a simulated trading destination implementing domain.VenueClient.
type Venue struct {
	cfg Config

	mu  sync.Mutex
	mid float64
	rng *rand.Rand
}

// New creates a simulated venue. Zero-valued fields get workable defaults.
func New(cfg Config) *Venue {
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 100
	}
	if cfg.SpreadBps <= 0 {
		cfg.SpreadBps = 10
	}
	if cfg.DepthLevels <= 0 {
		cfg.DepthLevels = 10
	}
	if cfg.LevelSize <= 0 {
		cfg.LevelSize = 50
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Venue{
		cfg: cfg,
		mid: cfg.BasePrice,
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (v *Venue) Name() string { return v.cfg.Name }

// latency sleeps the configured artificial delay, honoring ctx.
func (v *Venue) latency(ctx context.Context) error {
	if v.cfg.LatencyMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(v.cfg.LatencyMs) * time.Millisecond):
		return nil
	}
}

// step advances the simulated mid by a small random walk and reports the new
// value. Must be called with the lock held.
func (v *Venue) step() float64 {
	drift := (v.rng.Float64()*2 - 1) * v.mid * 0.0005
	v.mid += drift
	return v.mid
}

// FetchBook generates a synthetic two-sided book around the walking mid.
func (v *Venue) FetchBook(ctx context.Context, asset string, depth int) (domain.VenueBook, error) {
	if err := v.latency(ctx); err != nil {
		return domain.VenueBook{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cfg.FailureRate > 0 && v.rng.Float64() < v.cfg.FailureRate {
		return domain.VenueBook{}, fmt.Errorf("sim %s: simulated book fetch failure", v.cfg.Name)
	}

	mid := v.step()
	half := mid * v.cfg.SpreadBps / 10_000 / 2
	levels := v.cfg.DepthLevels
	if depth > 0 && depth < levels {
		levels = depth
	}

	book := domain.VenueBook{Venue: v.cfg.Name}
	tick := half / 2
	for i := 0; i < levels; i++ {
		offset := half + float64(i)*tick
		size := v.cfg.LevelSize * (1 + v.rng.Float64())
		book.Bids = append(book.Bids, domain.PriceLevel{
			Venue: v.cfg.Name, Price: mid - offset, Quantity: size,
		})
		book.Asks = append(book.Asks, domain.PriceLevel{
			Venue: v.cfg.Name, Price: mid + offset, Quantity: size,
		})
	}
	return book, nil
}

// SubmitOrder fills immediately at the requested price with a small random
// improvement or slip, charging the configured taker fee.
func (v *Venue) SubmitOrder(ctx context.Context, asset string, side domain.Side, quantity, price float64) (domain.Fill, error) {
	if err := v.latency(ctx); err != nil {
		return domain.Fill{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cfg.FailureRate > 0 && v.rng.Float64() < v.cfg.FailureRate {
		return domain.Fill{}, fmt.Errorf("sim %s: simulated order rejection", v.cfg.Name)
	}

	slip := (v.rng.Float64()*2 - 1) * price * 0.0002
	fillPrice := price + slip
	return domain.Fill{
		Venue:     v.cfg.Name,
		OrderID:   uuid.New().String(),
		Side:      side,
		Quantity:  quantity,
		Price:     fillPrice,
		Fee:       v.cfg.TakerFee * quantity * fillPrice,
		Timestamp: time.Now().UTC(),
	}, nil
}
