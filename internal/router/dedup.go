package router

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantbot/smartrouter/internal/domain"
)

// dedup rejects a route request identical to one accepted within the TTL
// window. It guards against double-submission from retrying clients; two
// genuinely distinct orders for the same parameters inside the window must
// wait it out. Safe for concurrent use.
type dedup struct {
	seen map[string]time.Time
	ttl  time.Duration
	mu   sync.Mutex
}

func newDedup(ttl time.Duration) *dedup {
	return &dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// fingerprint collapses a request into its identity key. Venue order does
// not matter.
func fingerprint(req domain.RouteRequest) string {
	venues := append([]string(nil), req.Venues...)
	sort.Strings(venues)
	return fmt.Sprintf("%s|%s|%.8f|%s|%s",
		req.Asset, req.Side, req.Quantity, req.Urgency, strings.Join(venues, ","))
}

// isDuplicate reports whether an identical request was accepted within the
// TTL. A non-duplicate is recorded. Expired entries are swept opportunistically.
func (d *dedup) isDuplicate(req domain.RouteRequest) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	key := fingerprint(req)
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.ttl {
		return true
	}
	d.seen[key] = now

	for k, t := range d.seen {
		if now.Sub(t) >= d.ttl {
			delete(d.seen, k)
		}
	}
	return false
}
