// Package handler contains the HTTP handlers for the scanner's read API.
// Handlers depend on narrow query interfaces so tests can substitute fakes
// without running feeds.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// VenueStatusSource reports per-venue connection health.
type VenueStatusSource interface {
	VenueStatus() []domain.VenueStatus
}

// HealthHandler serves the health-check and venue status endpoints.
type HealthHandler struct {
	venues    VenueStatusSource
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided status source.
func NewHealthHandler(venues VenueStatusSource, startedAt time.Time, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{venues: venues, startedAt: startedAt, logger: logger}
}

// HealthCheck responds with overall status. The scanner is "degraded" when
// any venue adapter has terminally failed, "ok" otherwise.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	streaming := 0
	for _, v := range h.venues.VenueStatus() {
		switch v.State {
		case domain.VenueFailed:
			status = "degraded"
		case domain.VenueStreaming:
			streaming++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"streaming_venues": streaming,
		"uptime_seconds":   int64(time.Since(h.startedAt).Seconds()),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

// listVenuesResponse wraps the venue status response.
type listVenuesResponse struct {
	Venues []domain.VenueStatus `json:"venues"`
}

// ListVenues returns per-venue connection state and counters.
// GET /api/venues
func (h *HealthHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues := h.venues.VenueStatus()
	if venues == nil {
		venues = []domain.VenueStatus{}
	}
	writeJSON(w, http.StatusOK, listVenuesResponse{Venues: venues})
}
