package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// PriceSource provides read access to the live price state.
type PriceSource interface {
	Instruments() []string
	LatestPrices(instrument string) (map[string]domain.PriceObservation, error)
}

// PriceHandler serves the live price endpoints.
type PriceHandler struct {
	prices PriceSource
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler with the given source.
func NewPriceHandler(prices PriceSource, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// ListInstruments returns the distinct instruments currently observed.
// GET /api/prices
func (h *PriceHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments := h.prices.Instruments()
	if instruments == nil {
		instruments = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"instruments": instruments})
}

// GetPrices returns venue -> freshest observation for one instrument.
// GET /api/prices/{instrument}
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	instrument := r.PathValue("instrument")
	if instrument == "" {
		writeError(w, http.StatusBadRequest, "missing instrument")
		return
	}

	prices, err := h.prices.LatestPrices(instrument)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no observations for instrument")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest prices failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"instrument": instrument,
		"prices":     prices,
	})
}
