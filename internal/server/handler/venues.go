package handler

import (
	"net/http"

	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/venue"
)

// VenueHandler exposes the registered venues and their reference profiles.
type VenueHandler struct {
	registry *venue.Registry
}

// NewVenueHandler creates a VenueHandler.
func NewVenueHandler(registry *venue.Registry) *VenueHandler {
	return &VenueHandler{registry: registry}
}

// ListVenues returns the profiles of all registered venues.
// GET /api/venues
func (h *VenueHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	profiles := make([]domain.VenueProfile, 0, len(names))
	for _, name := range names {
		if p, ok := h.registry.Profile(name); ok {
			profiles = append(profiles, p)
		}
	}
	writeJSON(w, http.StatusOK, profiles)
}
