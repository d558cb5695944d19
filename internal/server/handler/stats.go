package handler

import (
	"net/http"

	"github.com/quantbot/smartrouter/internal/router"
)

// StatsHandler exposes the in-process routing statistics.
type StatsHandler struct {
	router *router.Router
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(rt *router.Router) *StatsHandler {
	return &StatsHandler{router: rt}
}

// GetStats returns aggregate routing statistics since process start.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.Stats())
}
