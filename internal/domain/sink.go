package domain

import "context"

// ObservationSink receives every normalized observation produced by the feed
// supervisor, after the price state store and detector have seen it.
// Implementations must not block the ingestion path; slow sinks should drop.
type ObservationSink interface {
	PublishObservation(ctx context.Context, obs PriceObservation) error
}

// OpportunitySink receives every opportunity the detector emits, after it has
// been appended to the in-memory ledger. Sink failures are logged and never
// propagate back into detection.
type OpportunitySink interface {
	PublishOpportunity(ctx context.Context, opp ArbitrageOpportunity) error
}

// OpportunityArchive is the optional durable store for detected opportunities
// (external-collaborator territory; the in-memory ledger stays authoritative).
type OpportunityArchive interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
}
