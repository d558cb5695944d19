package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quantbot/smartrouter/internal/domain"
)

// BookHandler serves cached aggregated book snapshots. Snapshots are the
// side-product of routing decisions; an asset never routed has no snapshot.
type BookHandler struct {
	cache  domain.BookCache
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(cache domain.BookCache, logger *slog.Logger) *BookHandler {
	return &BookHandler{cache: cache, logger: logHandler(logger, "book")}
}

// GetBook returns the latest cached snapshot for an asset.
// GET /api/book/{asset}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")

	book, err := h.cache.GetSnapshot(r.Context(), asset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for asset")
			return
		}
		h.logger.ErrorContext(r.Context(), "get book",
			slog.String("asset", asset),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, book)
}
