package executor

import (
	"math/rand"
	"time"
)

// Jitter perturbs the inter-clip sleep so slice releases do not land on a
// predictable cadence other participants could detect and front-run.
type Jitter interface {
	// Delay returns the adjusted sleep for one clip given the base interval.
	Delay(base time.Duration) time.Duration
}

// NoJitter returns the base interval unchanged. Used in tests and wherever
// deterministic pacing is preferred.
type NoJitter struct{}

func (NoJitter) Delay(base time.Duration) time.Duration { return base }

// RandomJitter perturbs the interval by up to ±Fraction (default 0.20). The
// randomness source is injected so tests can fix the seed.
type RandomJitter struct {
	Fraction float64
	rng      *rand.Rand
}

// NewRandomJitter creates a RandomJitter with the given fraction and seed.
// A fraction <= 0 falls back to 0.20.
func NewRandomJitter(fraction float64, seed int64) *RandomJitter {
	if fraction <= 0 {
		fraction = 0.20
	}
	return &RandomJitter{
		Fraction: fraction,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (j *RandomJitter) Delay(base time.Duration) time.Duration {
	// Uniform in [-fraction, +fraction].
	offset := (j.rng.Float64()*2 - 1) * j.Fraction
	d := time.Duration(float64(base) * (1 + offset))
	if d < 0 {
		return 0
	}
	return d
}
