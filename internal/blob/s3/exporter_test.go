package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

type uploadCall struct {
	path        string
	contentType string
	multipart   bool
	body        []byte
}

type fakeObjectWriter struct {
	calls []uploadCall
	err   error
}

func (f *fakeObjectWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	body, _ := io.ReadAll(data)
	f.calls = append(f.calls, uploadCall{path: path, contentType: contentType, body: body})
	return f.err
}

func (f *fakeObjectWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	body, _ := io.ReadAll(data)
	f.calls = append(f.calls, uploadCall{path: path, multipart: true, body: body})
	return f.err
}

type fakeSource struct {
	opps []domain.ArbitrageOpportunity
}

func (f *fakeSource) Recent(window time.Duration, now time.Time) []domain.ArbitrageOpportunity {
	return f.opps
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var exportNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestExporter(source OpportunitySource, writer ObjectWriter) *Exporter {
	e := NewExporter(writer, source, "opportunities", time.Minute, silentLogger())
	e.now = func() time.Time { return exportNow }
	return e
}

func TestExportOnceSkipsEmptyWindow(t *testing.T) {
	writer := &fakeObjectWriter{}
	e := newTestExporter(&fakeSource{}, writer)

	require.NoError(t, e.ExportOnce(context.Background()))
	assert.Empty(t, writer.calls)
}

func TestExportOnceUploadsJSONL(t *testing.T) {
	writer := &fakeObjectWriter{}
	source := &fakeSource{opps: []domain.ArbitrageOpportunity{
		{ID: "a", BuyVenue: "binance", SellVenue: "coinbase", Instrument: "BTC-USD", ProfitPct: 0.8},
		{ID: "b", BuyVenue: "bitstamp", SellVenue: "coinbase", Instrument: "ETH-USD", ProfitPct: 0.4},
	}}
	e := newTestExporter(source, writer)

	require.NoError(t, e.ExportOnce(context.Background()))

	require.Len(t, writer.calls, 1)
	call := writer.calls[0]
	assert.Equal(t, "opportunities/2025-01-15/103000.jsonl", call.path)
	assert.Equal(t, "application/x-ndjson", call.contentType)
	assert.False(t, call.multipart)

	lines := bytes.Split(bytes.TrimSpace(call.body), []byte("\n"))
	require.Len(t, lines, 2)
	var first domain.ArbitrageOpportunity
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "a", first.ID)
}

func TestExportOnceLargeWindowUsesMultipart(t *testing.T) {
	writer := &fakeObjectWriter{}
	source := &fakeSource{opps: []domain.ArbitrageOpportunity{
		{ID: "a", Instrument: "BTC-USD"},
		{ID: "b", Instrument: "ETH-USD"},
	}}
	e := newTestExporter(source, writer)
	e.multipartMin = 1

	require.NoError(t, e.ExportOnce(context.Background()))

	require.Len(t, writer.calls, 1)
	assert.True(t, writer.calls[0].multipart)
	assert.Equal(t, "opportunities/2025-01-15/103000.jsonl", writer.calls[0].path)
}

func TestExporterTrimsPrefix(t *testing.T) {
	writer := &fakeObjectWriter{}
	source := &fakeSource{opps: []domain.ArbitrageOpportunity{{ID: "a"}}}
	e := NewExporter(writer, source, "/exports/arb/", time.Minute, silentLogger())
	e.now = func() time.Time { return exportNow }

	require.NoError(t, e.ExportOnce(context.Background()))
	require.Len(t, writer.calls, 1)
	assert.Equal(t, "exports/arb/2025-01-15/103000.jsonl", writer.calls[0].path)
}
