package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

const (
	defaultArchiveLimit = 100
	maxArchiveLimit     = 1000
)

// ArchiveHandler serves durable opportunity history. Unlike the in-memory
// ledger endpoints, its results survive restarts; it is only registered when
// the Postgres archive is enabled.
type ArchiveHandler struct {
	archive domain.OpportunityArchive
	logger  *slog.Logger
}

// NewArchiveHandler creates handlers over the given archive.
func NewArchiveHandler(archive domain.OpportunityArchive, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archive: archive,
		logger:  logger.With(slog.String("component", "archive_handler")),
	}
}

// ListArchived handles GET /api/opportunities/archive?limit=N, returning the
// most recently archived opportunities, newest first.
func (h *ArchiveHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}

	opps, err := h.archive.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"limit":         limit,
		"opportunities": opps,
	})
}
