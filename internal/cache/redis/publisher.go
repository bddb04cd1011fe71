package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

const (
	// ObservationChannel carries every normalized observation as JSON.
	ObservationChannel = "observations"
	// OpportunityChannel carries every detected opportunity as JSON.
	OpportunityChannel = "opportunities"
)

// Publisher mirrors observations into latest-price hashes (one per
// venue|instrument key) and publishes observation and opportunity events on
// pub/sub channels. It implements both domain.ObservationSink and
// domain.OpportunitySink.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher backed by the given Client.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{rdb: c.Underlying()}
}

func priceKey(venue, instrument string) string {
	return "price:" + venue + ":" + instrument
}

// PublishObservation upserts the latest-price hash for the observation's
// (venue, instrument) key and emits the observation event.
func (p *Publisher) PublishObservation(ctx context.Context, obs domain.PriceObservation) error {
	fields := map[string]any{
		"price":  strconv.FormatFloat(obs.Price, 'f', -1, 64),
		"bid":    strconv.FormatFloat(obs.Bid, 'f', -1, 64),
		"ask":    strconv.FormatFloat(obs.Ask, 'f', -1, 64),
		"volume": strconv.FormatFloat(obs.Volume, 'f', -1, 64),
		"ts":     strconv.FormatInt(obs.Timestamp.UnixNano(), 10),
	}
	if err := p.rdb.HSet(ctx, priceKey(obs.Venue, obs.Instrument), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s/%s: %w", obs.Venue, obs.Instrument, err)
	}

	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("redis: marshal observation: %w", err)
	}
	if err := p.rdb.Publish(ctx, ObservationChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", ObservationChannel, err)
	}
	return nil
}

// PublishOpportunity emits a detected opportunity event.
func (p *Publisher) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity: %w", err)
	}
	if err := p.rdb.Publish(ctx, OpportunityChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", OpportunityChannel, err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.ObservationSink = (*Publisher)(nil)
	_ domain.OpportunitySink = (*Publisher)(nil)
)
