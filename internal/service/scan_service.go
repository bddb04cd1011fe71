// Package service exposes the scanner's read API to external collaborators:
// presentation layers, ML scoring pipelines, and backtest tooling consume
// these queries and the observation subscription; none of them own detection
// logic.
package service

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/feed"
	"github.com/alanyoungcy/arbscan/internal/ledger"
	"github.com/alanyoungcy/arbscan/internal/pricestore"
)

// ScanService bundles the price state store, the opportunity ledger, and the
// feed supervisor behind the query surface consumed by the HTTP handlers and
// by in-process collaborators.
type ScanService struct {
	store      *pricestore.Store
	ledger     *ledger.Ledger
	supervisor *feed.Supervisor
	topPairs   int
}

// NewScanService creates a ScanService.
func NewScanService(store *pricestore.Store, led *ledger.Ledger, sup *feed.Supervisor, topPairs int) *ScanService {
	return &ScanService{store: store, ledger: led, supervisor: sup, topPairs: topPairs}
}

// LatestPrices returns venue -> freshest observation for one instrument, or
// domain.ErrNotFound when nothing has been observed for it.
func (s *ScanService) LatestPrices(instrument string) (map[string]domain.PriceObservation, error) {
	prices := s.store.LatestByVenue(instrument)
	if len(prices) == 0 {
		return nil, fmt.Errorf("instrument %s: %w", instrument, domain.ErrNotFound)
	}
	return prices, nil
}

// Instruments returns the distinct instruments currently observed.
func (s *ScanService) Instruments() []string {
	return s.store.Instruments()
}

// RecentOpportunities returns opportunities detected within the window,
// oldest first.
func (s *ScanService) RecentOpportunities(window time.Duration) []domain.ArbitrageOpportunity {
	return s.ledger.Recent(window, time.Now().UTC())
}

// BestOpportunity returns the most profitable opportunity in the window.
func (s *ScanService) BestOpportunity(window time.Duration) (domain.ArbitrageOpportunity, bool) {
	return s.ledger.Best(window, time.Now().UTC())
}

// Statistics computes detection statistics over the window.
func (s *ScanService) Statistics(window time.Duration) domain.Statistics {
	return s.ledger.Stats(window, time.Now().UTC(), s.topPairs)
}

// VenueStatus reports per-adapter connection health.
func (s *ScanService) VenueStatus() []domain.VenueStatus {
	return s.supervisor.VenueStatus()
}

// Subscribe registers an observation consumer. One channel per consumer;
// a consumer that falls behind loses messages instead of stalling the feeds.
func (s *ScanService) Subscribe() <-chan domain.PriceObservation {
	return s.supervisor.Subscribe()
}
