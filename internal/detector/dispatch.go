package detector

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// SinkQueue decouples opportunity sinks that perform external I/O (HTTP
// alerts, Postgres inserts, Redis publishes) from the ingestion path. The
// detector enqueues without blocking; a worker goroutine drains the queue and
// dispatches to the wrapped sinks. When the buffer fills, new opportunities
// are dropped for the external sinks rather than stalling a venue's read
// loop; the in-memory ledger has already recorded them.
type SinkQueue struct {
	sinks  []domain.OpportunitySink
	queue  chan domain.ArbitrageOpportunity
	logger *slog.Logger

	dropped atomic.Int64
}

// NewSinkQueue wraps the given sinks behind a buffered dispatch queue.
func NewSinkQueue(sinks []domain.OpportunitySink, buffer int, logger *slog.Logger) *SinkQueue {
	if buffer < 1 {
		buffer = 1
	}
	return &SinkQueue{
		sinks:  sinks,
		queue:  make(chan domain.ArbitrageOpportunity, buffer),
		logger: logger.With(slog.String("component", "sink_queue")),
	}
}

// PublishOpportunity enqueues the opportunity for asynchronous dispatch. It
// never blocks; when the queue is full the opportunity is dropped and
// counted.
func (q *SinkQueue) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	select {
	case q.queue <- opp:
	default:
		q.dropped.Add(1)
		q.logger.DebugContext(ctx, "sink queue full, opportunity dropped",
			slog.String("opp_id", opp.ID),
		)
	}
	return nil
}

// Run drains the queue until the context is cancelled, dispatching each
// opportunity to every wrapped sink. Sink errors are logged and contained.
func (q *SinkQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case opp := <-q.queue:
			for _, sink := range q.sinks {
				if err := sink.PublishOpportunity(ctx, opp); err != nil {
					q.logger.WarnContext(ctx, "opportunity sink failed",
						slog.String("opp_id", opp.ID),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

// Dropped returns how many opportunities were discarded on a full queue.
func (q *SinkQueue) Dropped() int64 {
	return q.dropped.Load()
}

var _ domain.OpportunitySink = (*SinkQueue)(nil)
