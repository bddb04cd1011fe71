// Package domain defines the canonical data model shared by every layer of
// the arbitrage scanner: normalized price observations, detected
// opportunities, derived statistics, and the error sentinels used across
// package boundaries.
package domain

import (
	"fmt"
	"time"
)

// epochMillisCutoff separates second-resolution epochs from millisecond ones.
// Anything above it (year 33658 in seconds) must be milliseconds.
const epochMillisCutoff = 1e12

// PriceObservation is a normalized price tick from one venue. It is created
// once at the adapter boundary and never mutated afterwards.
type PriceObservation struct {
	Venue      string    `json:"venue"`
	Instrument string    `json:"instrument"` // canonical key, e.g. "BTC-USD"
	Price      float64   `json:"price"`      // last trade price
	Bid        float64   `json:"bid"`        // 0 = not provided by the venue
	Ask        float64   `json:"ask"`        // 0 = not provided by the venue
	Volume     float64   `json:"volume"`
	Timestamp  time.Time `json:"timestamp"` // always UTC
}

// Key returns the (venue, instrument) identity used by the price state store.
func (o PriceObservation) Key() string {
	return o.Venue + "|" + o.Instrument
}

// Age returns how old the observation is relative to now.
func (o PriceObservation) Age(now time.Time) time.Duration {
	return now.Sub(o.Timestamp)
}

// TimeFromEpoch converts a raw venue epoch into a UTC time.Time. Venues
// disagree on resolution: Binance sends milliseconds, Bitstamp seconds.
func TimeFromEpoch(epoch int64) time.Time {
	if epoch > epochMillisCutoff {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}

// TimeFromVenueString parses an RFC3339 timestamp as sent by venues like
// Coinbase ("2024-05-01T12:00:00.123456Z") into UTC.
func TimeFromVenueString(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrParse, s, err)
	}
	return t.UTC(), nil
}
