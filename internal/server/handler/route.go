package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quantbot/smartrouter/internal/domain"
	"github.com/quantbot/smartrouter/internal/router"
)

// RouteHandler accepts trade requests and runs them through the router.
type RouteHandler struct {
	router *router.Router
	logger *slog.Logger
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(rt *router.Router, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{router: rt, logger: logHandler(logger, "route")}
}

// SubmitRoute validates and executes a trade request, blocking until the
// execution reaches a terminal status.
// POST /api/route
func (h *RouteHandler) SubmitRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := h.router.Route(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrDuplicateRoute):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrNoVenuesResponded):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "route failed",
				slog.String("asset", req.Asset),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "routing failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}
