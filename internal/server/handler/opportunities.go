package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// defaultWindow bounds queries that do not specify one.
const defaultWindow = time.Hour

// OpportunitySource provides read access to the opportunity ledger.
type OpportunitySource interface {
	RecentOpportunities(window time.Duration) []domain.ArbitrageOpportunity
	BestOpportunity(window time.Duration) (domain.ArbitrageOpportunity, bool)
	Statistics(window time.Duration) domain.Statistics
}

// OpportunityHandler serves the opportunity and statistics endpoints.
type OpportunityHandler struct {
	opps   OpportunitySource
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler with the given source.
func NewOpportunityHandler(opps OpportunitySource, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, logger: logger}
}

// listOpportunitiesResponse wraps the recent opportunities response.
type listOpportunitiesResponse struct {
	Window        string                        `json:"window"`
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// ListRecent returns opportunities detected within the window, oldest first.
// GET /api/opportunities/recent?window=5m
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, defaultWindow)

	opps := h.opps.RecentOpportunities(window)
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}

	writeJSON(w, http.StatusOK, listOpportunitiesResponse{
		Window:        window.String(),
		Opportunities: opps,
	})
}

// Best returns the most profitable opportunity in the window, or 404 when the
// window is empty.
// GET /api/opportunities/best?window=5m
func (h *OpportunityHandler) Best(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, defaultWindow)

	best, ok := h.opps.BestOpportunity(window)
	if !ok {
		writeError(w, http.StatusNotFound, "no opportunities in window")
		return
	}

	writeJSON(w, http.StatusOK, best)
}

// Statistics returns detection statistics over the window.
// GET /api/statistics?window=1h
func (h *OpportunityHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	window := parseWindow(r, defaultWindow)
	writeJSON(w, http.StatusOK, h.opps.Statistics(window))
}
