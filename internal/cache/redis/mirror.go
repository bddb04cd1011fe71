package redis

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Mirror drains an observation subscriber channel into the Publisher's
// latest-price hashes and pub/sub events. It consumes a feed supervisor
// subscription, so when Redis is slow the supervisor drops observations for
// this consumer instead of stalling ingestion.
type Mirror struct {
	pub    *Publisher
	logger *slog.Logger
}

// NewMirror creates a Mirror over the given Publisher.
func NewMirror(pub *Publisher, logger *slog.Logger) *Mirror {
	return &Mirror{
		pub:    pub,
		logger: logger.With(slog.String("component", "redis_mirror")),
	}
}

// Run mirrors observations until the channel is closed or the context is
// cancelled. Write failures are logged and the loop continues; the mirror is
// a best-effort replica, never the source of truth.
func (m *Mirror) Run(ctx context.Context, observations <-chan domain.PriceObservation) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case obs, ok := <-observations:
			if !ok {
				return nil
			}
			if err := m.pub.PublishObservation(ctx, obs); err != nil {
				m.logger.DebugContext(ctx, "mirror write failed",
					slog.String("key", obs.Key()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
