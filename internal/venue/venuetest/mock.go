// Package venuetest provides a scriptable in-memory VenueClient for tests:
// fixed book responses, call tracking, and per-method error injection.
package venuetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantbot/smartrouter/internal/domain"
)

// MockVenue is a test double for domain.VenueClient.
type MockVenue struct {
	mu sync.Mutex

	VenueName string

	// Response data
	Book      domain.VenueBook
	Profile   domain.VenueProfile
	FillFee   float64
	FillDrift float64 // added to the requested price on fills

	// Error injection
	FetchErr    error
	SubmitErr   error
	FailSubmits int // fail the first N submits, then succeed

	// Latency simulation (applies to both calls)
	Delay time.Duration

	// Call tracking
	Calls map[string]int

	// Submitted records every accepted order in call order.
	Submitted []domain.Fill
}

// New creates a mock venue with the given name and book.
func New(name string, book domain.VenueBook) *MockVenue {
	book.Venue = name
	return &MockVenue{
		VenueName: name,
		Book:      book,
		Calls:     make(map[string]int),
	}
}

func (m *MockVenue) Name() string { return m.VenueName }

func (m *MockVenue) track(method string) {
	m.Calls[method]++
}

// CallCount returns how many times the named method was invoked.
func (m *MockVenue) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockVenue) sleep(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Delay):
		return nil
	}
}

// FetchBook returns the scripted book, honoring Delay and FetchErr.
func (m *MockVenue) FetchBook(ctx context.Context, asset string, depth int) (domain.VenueBook, error) {
	m.mu.Lock()
	m.track("FetchBook")
	err := m.FetchErr
	book := m.Book
	m.mu.Unlock()

	if serr := m.sleep(ctx); serr != nil {
		return domain.VenueBook{}, serr
	}
	if err != nil {
		return domain.VenueBook{}, err
	}
	if depth > 0 {
		if len(book.Bids) > depth {
			book.Bids = book.Bids[:depth]
		}
		if len(book.Asks) > depth {
			book.Asks = book.Asks[:depth]
		}
	}
	return book, nil
}

// SubmitOrder fills at the requested price plus FillDrift, honoring Delay,
// SubmitErr, and FailSubmits.
func (m *MockVenue) SubmitOrder(ctx context.Context, asset string, side domain.Side, quantity, price float64) (domain.Fill, error) {
	if serr := m.sleep(ctx); serr != nil {
		return domain.Fill{}, serr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("SubmitOrder")

	if m.SubmitErr != nil {
		return domain.Fill{}, m.SubmitErr
	}
	if m.FailSubmits > 0 {
		m.FailSubmits--
		return domain.Fill{}, fmt.Errorf("%s: injected submit failure", m.VenueName)
	}

	fill := domain.Fill{
		Venue:     m.VenueName,
		OrderID:   fmt.Sprintf("%s-%d", m.VenueName, len(m.Submitted)+1),
		Side:      side,
		Quantity:  quantity,
		Price:     price + m.FillDrift,
		Fee:       m.FillFee * quantity * price,
		Timestamp: time.Now().UTC(),
	}
	m.Submitted = append(m.Submitted, fill)
	return fill, nil
}

// Registry is a static ClientSource and ProfileSource over mock venues.
type Registry map[string]*MockVenue

// Client implements domain.ClientSource.
func (r Registry) Client(name string) (domain.VenueClient, bool) {
	v, ok := r[name]
	if !ok {
		return nil, false
	}
	return v, true
}

// Names implements domain.ClientSource.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	return names
}

// Profile implements domain.ProfileSource. The zero profile is reported as
// absent so fee-unaware tests keep their plain arithmetic.
func (r Registry) Profile(name string) (domain.VenueProfile, bool) {
	v, ok := r[name]
	if !ok || v.Profile == (domain.VenueProfile{}) {
		return domain.VenueProfile{}, false
	}
	return v.Profile, true
}
