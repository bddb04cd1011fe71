// Package venue implements one websocket adapter per market-data venue.
// Each adapter owns a single connection, translates the venue's wire
// messages into domain.PriceObservation, and re-issues its subscriptions
// after every reconnect. Connection lifecycle (backoff, retry budget) is
// driven by the feed supervisor; adapters only run one connection at a time.
package venue

import (
	"context"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// ObservationFunc consumes one normalized observation. Adapters call it
// inline from their read loop, preserving per-venue wire arrival order.
type ObservationFunc func(obs domain.PriceObservation)

// Adapter is the capability set every venue must provide. Implementations
// are not safe for concurrent Stream calls; the supervisor runs exactly one
// session per adapter at a time.
type Adapter interface {
	// Name returns the venue identifier used in observations and logs.
	Name() string

	// Connect dials the venue and prepares the session. It must be followed
	// by Subscribe before Stream.
	Connect(ctx context.Context) error

	// Subscribe issues the venue-specific subscription requests for the
	// configured symbols. Venues that select streams in the connect URL
	// implement this as a no-op.
	Subscribe(ctx context.Context) error

	// Stream reads wire messages until the connection drops or ctx is
	// cancelled, emitting zero or one observation per message. Parse
	// failures are logged and skipped; only transport errors end the
	// session. The returned error classifies the termination
	// (domain.ErrWSDisconnect wrapped, or ctx.Err()).
	Stream(ctx context.Context, emit ObservationFunc) error

	// Close tears down the current connection, unblocking a Stream read.
	// Safe to call at any point and more than once.
	Close() error
}
