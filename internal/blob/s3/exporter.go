package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// OpportunitySource provides read access to recently detected opportunities.
// The in-memory ledger satisfies this implicitly.
type OpportunitySource interface {
	Recent(window time.Duration, now time.Time) []domain.ArbitrageOpportunity
}

// ObjectWriter is the upload surface the exporter needs; Writer satisfies it.
type ObjectWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Exporter periodically snapshots the recent opportunity window and uploads
// it to S3 as newline-delimited JSON. Each export covers the opportunities
// detected since the previous tick, so consecutive objects partition the
// stream without overlap.
type Exporter struct {
	writer   ObjectWriter
	source   OpportunitySource
	prefix   string
	interval time.Duration
	logger   *slog.Logger

	// multipartMin is the payload size at which uploads switch to the
	// multipart manager.
	multipartMin int

	now func() time.Time
}

// NewExporter creates an Exporter that uploads one object per interval under
// the given key prefix.
func NewExporter(writer ObjectWriter, source OpportunitySource, prefix string, interval time.Duration, logger *slog.Logger) *Exporter {
	if prefix == "" {
		prefix = "opportunities"
	}
	return &Exporter{
		writer:       writer,
		source:       source,
		prefix:       strings.Trim(prefix, "/"),
		interval:     interval,
		logger:       logger.With(slog.String("component", "s3_exporter")),
		multipartMin: int(minPartSize),
		now:          time.Now,
	}
}

// Run exports on a fixed ticker until the context is cancelled. A final
// export is attempted on shutdown so the tail of the stream is not lost.
// Upload failures are logged and do not stop the loop.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := e.ExportOnce(flushCtx); err != nil {
				e.logger.Error("final export failed", slog.String("error", err.Error()))
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if err := e.ExportOnce(ctx); err != nil {
				e.logger.Error("export failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ExportOnce uploads the opportunities detected within the last interval.
// Empty windows produce no object.
func (e *Exporter) ExportOnce(ctx context.Context) error {
	now := e.now().UTC()

	opps := e.source.Recent(e.interval, now)
	if len(opps) == 0 {
		return nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return fmt.Errorf("s3blob: export marshal: %w", err)
	}

	// Busy windows can exceed the single-shot object sweet spot; hand those
	// to the multipart manager instead.
	path := e.exportPath(now)
	var uploadErr error
	if len(buf) >= e.multipartMin {
		uploadErr = e.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		uploadErr = e.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if uploadErr != nil {
		return fmt.Errorf("s3blob: export upload: %w", uploadErr)
	}

	e.logger.Info("exported opportunity window",
		slog.String("path", path),
		slog.Int("count", len(opps)),
	)
	return nil
}

// exportPath builds the S3 key for an export object, partitioned by day with
// the tick timestamp in the file name.
//
//	opportunities/2025-01-15/103000.jsonl
func (e *Exporter) exportPath(now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl",
		e.prefix, now.Format("2006-01-02"), now.Format("150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON. Each
// element becomes one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
