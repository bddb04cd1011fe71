package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScan is a canned-data stand-in for the scan service.
type fakeScan struct {
	venues      []domain.VenueStatus
	instruments []string
	prices      map[string]map[string]domain.PriceObservation
	recent      []domain.ArbitrageOpportunity
	best        domain.ArbitrageOpportunity
	hasBest     bool
	stats       domain.Statistics

	lastWindow time.Duration
}

func (f *fakeScan) VenueStatus() []domain.VenueStatus { return f.venues }
func (f *fakeScan) Instruments() []string             { return f.instruments }
func (f *fakeScan) LatestPrices(instrument string) (map[string]domain.PriceObservation, error) {
	prices, ok := f.prices[instrument]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return prices, nil
}
func (f *fakeScan) RecentOpportunities(window time.Duration) []domain.ArbitrageOpportunity {
	f.lastWindow = window
	return f.recent
}
func (f *fakeScan) BestOpportunity(window time.Duration) (domain.ArbitrageOpportunity, bool) {
	f.lastWindow = window
	return f.best, f.hasBest
}
func (f *fakeScan) Statistics(window time.Duration) domain.Statistics {
	f.lastWindow = window
	return f.stats
}

func newMux(scan *fakeScan) *http.ServeMux {
	logger := testLogger()
	health := NewHealthHandler(scan, time.Now().UTC().Add(-time.Minute), logger)
	prices := NewPriceHandler(scan, logger)
	opps := NewOpportunityHandler(scan, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", health.HealthCheck)
	mux.HandleFunc("GET /api/venues", health.ListVenues)
	mux.HandleFunc("GET /api/prices", prices.ListInstruments)
	mux.HandleFunc("GET /api/prices/{instrument}", prices.GetPrices)
	mux.HandleFunc("GET /api/opportunities/recent", opps.ListRecent)
	mux.HandleFunc("GET /api/opportunities/best", opps.Best)
	mux.HandleFunc("GET /api/statistics", opps.Statistics)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthOK(t *testing.T) {
	scan := &fakeScan{venues: []domain.VenueStatus{
		{Venue: "coinbase", State: domain.VenueStreaming},
		{Venue: "binance", State: domain.VenueStreaming},
	}}

	rec, body := get(t, newMux(scan), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["streaming_venues"])
}

func TestHealthDegradedOnFailedVenue(t *testing.T) {
	scan := &fakeScan{venues: []domain.VenueStatus{
		{Venue: "coinbase", State: domain.VenueStreaming},
		{Venue: "bitstamp", State: domain.VenueFailed},
	}}

	rec, body := get(t, newMux(scan), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestListVenues(t *testing.T) {
	scan := &fakeScan{venues: []domain.VenueStatus{
		{Venue: "coinbase", State: domain.VenueStreaming, Observations: 42},
	}}

	rec, body := get(t, newMux(scan), "/api/venues")
	assert.Equal(t, http.StatusOK, rec.Code)
	venues := body["venues"].([]any)
	require.Len(t, venues, 1)
	v := venues[0].(map[string]any)
	assert.Equal(t, "coinbase", v["venue"])
}

func TestGetPrices(t *testing.T) {
	scan := &fakeScan{prices: map[string]map[string]domain.PriceObservation{
		"BTC-USD": {
			"coinbase": {Venue: "coinbase", Instrument: "BTC-USD", Price: 50000},
		},
	}}

	rec, body := get(t, newMux(scan), "/api/prices/BTC-USD")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC-USD", body["instrument"])

	rec, body = get(t, newMux(scan), "/api/prices/ETH-USD")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestListInstruments(t *testing.T) {
	scan := &fakeScan{instruments: []string{"BTC-USD", "ETH-USD"}}

	rec, body := get(t, newMux(scan), "/api/prices")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["instruments"].([]any), 2)

	// Nil slices serialize as empty arrays, not null.
	rec, body = get(t, newMux(&fakeScan{}), "/api/prices")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["instruments"])
}

func TestListRecentParsesWindow(t *testing.T) {
	scan := &fakeScan{recent: []domain.ArbitrageOpportunity{{ID: "1"}}}
	mux := newMux(scan)

	rec, body := get(t, mux, "/api/opportunities/recent?window=5m")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5*time.Minute, scan.lastWindow)
	assert.Equal(t, "5m0s", body["window"])
	assert.Len(t, body["opportunities"].([]any), 1)

	// Bare integers are seconds; garbage falls back to the default hour.
	get(t, mux, "/api/opportunities/recent?window=90")
	assert.Equal(t, 90*time.Second, scan.lastWindow)

	get(t, mux, "/api/opportunities/recent?window=soon")
	assert.Equal(t, time.Hour, scan.lastWindow)
}

func TestBest(t *testing.T) {
	scan := &fakeScan{
		best:    domain.ArbitrageOpportunity{ID: "b1", ProfitPct: 1.2},
		hasBest: true,
	}
	rec, body := get(t, newMux(scan), "/api/opportunities/best")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", body["id"])

	rec, _ = get(t, newMux(&fakeScan{}), "/api/opportunities/best")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// fakeArchive is a canned-data stand-in for the Postgres archive.
type fakeArchive struct {
	opps      []domain.ArbitrageOpportunity
	err       error
	lastLimit int
}

func (f *fakeArchive) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	return f.err
}

func (f *fakeArchive) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	f.lastLimit = limit
	return f.opps, f.err
}

func newArchiveMux(archive *fakeArchive) *http.ServeMux {
	h := NewArchiveHandler(archive, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/opportunities/archive", h.ListArchived)
	return mux
}

func TestListArchived(t *testing.T) {
	archive := &fakeArchive{opps: []domain.ArbitrageOpportunity{{ID: "a"}, {ID: "b"}}}
	mux := newArchiveMux(archive)

	rec, body := get(t, mux, "/api/opportunities/archive")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, archive.lastLimit)
	assert.Len(t, body["opportunities"].([]any), 2)

	rec, _ = get(t, mux, "/api/opportunities/archive?limit=25")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, archive.lastLimit)

	// Oversized limits are clamped rather than rejected.
	get(t, mux, "/api/opportunities/archive?limit=99999")
	assert.Equal(t, 1000, archive.lastLimit)
}

func TestListArchivedBadLimit(t *testing.T) {
	mux := newArchiveMux(&fakeArchive{})

	rec, body := get(t, mux, "/api/opportunities/archive?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestListArchivedQueryError(t *testing.T) {
	mux := newArchiveMux(&fakeArchive{err: errors.New("connection refused")})

	rec, body := get(t, mux, "/api/opportunities/archive")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, body["error"])

	// Empty archives serialize as empty arrays, not null.
	rec, body = get(t, newArchiveMux(&fakeArchive{}), "/api/opportunities/archive")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["opportunities"])
}

func TestStatistics(t *testing.T) {
	scan := &fakeScan{stats: domain.Statistics{
		TotalOpportunities: 7,
		RecentCount:        3,
		AvgProfit:          0.9,
		TopPairs:           []domain.PairCount{{Pair: "a->b:BTC-USD", Count: 4}},
	}}

	rec, body := get(t, newMux(scan), "/api/statistics?window=1h")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), body["total_opportunities"])
	assert.Equal(t, float64(3), body["recent_count"])
	require.Len(t, body["top_pairs"].([]any), 1)
}
