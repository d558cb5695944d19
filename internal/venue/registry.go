// Package venue provides the concrete VenueClient implementations and the
// registry the router resolves them through. Which implementation backs a
// name is fixed at construction time; routing logic never branches on it.
package venue

import (
	"sort"
	"sync"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Registry maps venue names to clients and reference profiles. Clients are
// registered at wiring time and never change mid-route; profile refreshes
// happen out-of-band between routing decisions.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]domain.VenueClient
	profiles map[string]domain.VenueProfile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]domain.VenueClient),
		profiles: make(map[string]domain.VenueProfile),
	}
}

// Register adds a client and its profile under the client's name.
func (r *Registry) Register(client domain.VenueClient, profile domain.VenueProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.Venue = client.Name()
	r.clients[client.Name()] = client
	r.profiles[client.Name()] = profile
}

// Client implements domain.ClientSource.
func (r *Registry) Client(name string) (domain.VenueClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Names implements domain.ClientSource; the result is sorted for stable
// iteration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Profile implements domain.ProfileSource.
func (r *Registry) Profile(name string) (domain.VenueProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// SetProfile replaces one venue's reference data. Called from the
// out-of-band refresh path, never mid-route.
func (r *Registry) SetProfile(p domain.VenueProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Venue] = p
}
