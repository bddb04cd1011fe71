package venue

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/symbols"
)

func testNormalizer() *symbols.Normalizer {
	return symbols.NewNormalizer(map[string]string{
		"BTC-USD": "BTC-USD",
		"BTCUSDT": "BTC-USD",
		"btcusd":  "BTC-USD",
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCoinbaseParseTicker(t *testing.T) {
	c := NewCoinbase(config.VenueConfig{Name: "coinbase", Symbols: []string{"BTC-USD"}}, testNormalizer(), testLogger())

	raw := []byte(`{
		"type": "ticker",
		"product_id": "BTC-USD",
		"price": "50123.45",
		"volume_24h": "1234.5",
		"time": "2024-05-01T12:00:00.123456Z",
		"best_bid": "50120.00",
		"best_ask": "50125.00"
	}`)

	obs, ok, err := c.parseMessage(raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "coinbase", obs.Venue)
	assert.Equal(t, "BTC-USD", obs.Instrument)
	assert.Equal(t, 50123.45, obs.Price)
	assert.Equal(t, 50120.0, obs.Bid)
	assert.Equal(t, 50125.0, obs.Ask)
	assert.Equal(t, 1234.5, obs.Volume)
	assert.Equal(t, time.UTC, obs.Timestamp.Location())
}

func TestCoinbaseIgnoresNonTicker(t *testing.T) {
	c := NewCoinbase(config.VenueConfig{Name: "coinbase"}, testNormalizer(), testLogger())

	for _, raw := range []string{
		`{"type":"subscriptions","channels":[]}`,
		`{"type":"heartbeat","sequence":123}`,
	} {
		_, ok, err := c.parseMessage([]byte(raw))
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestCoinbaseMalformedTicker(t *testing.T) {
	c := NewCoinbase(config.VenueConfig{Name: "coinbase"}, testNormalizer(), testLogger())

	_, ok, err := c.parseMessage([]byte(`{"type":"ticker","product_id":"BTC-USD","price":"not-a-number","time":"2024-05-01T12:00:00Z"}`))
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, _, err = c.parseMessage([]byte(`{"type":"ticker","product_id":"BTC-USD","price":"1.0","time":"garbage"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestCoinbaseMissingBidAskDegrades(t *testing.T) {
	c := NewCoinbase(config.VenueConfig{Name: "coinbase"}, testNormalizer(), testLogger())

	obs, ok, err := c.parseMessage([]byte(`{"type":"ticker","product_id":"BTC-USD","price":"50000","time":"2024-05-01T12:00:00Z"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, obs.Bid)
	assert.Zero(t, obs.Ask)
	assert.Equal(t, 50000.0, obs.Price)
}

func TestBinanceParseTicker(t *testing.T) {
	b := NewBinance(config.VenueConfig{Name: "binance", Symbols: []string{"BTCUSDT"}}, testNormalizer(), testLogger())

	raw := []byte(`{
		"e": "24hrTicker",
		"E": 1714564800123,
		"s": "BTCUSDT",
		"c": "50100.10",
		"v": "98765.4",
		"b": "50099.00",
		"a": "50101.00"
	}`)

	obs, ok, err := b.parseMessage(raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "binance", obs.Venue)
	assert.Equal(t, "BTC-USD", obs.Instrument)
	assert.Equal(t, 50100.10, obs.Price)
	assert.Equal(t, 50099.0, obs.Bid)
	assert.Equal(t, 50101.0, obs.Ask)
	assert.Equal(t, time.UnixMilli(1714564800123).UTC(), obs.Timestamp)
}

func TestBinanceIgnoresOtherEvents(t *testing.T) {
	b := NewBinance(config.VenueConfig{Name: "binance"}, testNormalizer(), testLogger())

	_, ok, err := b.parseMessage([]byte(`{"e":"depthUpdate","E":1714564800123,"s":"BTCUSDT"}`))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBinanceMalformedTicker(t *testing.T) {
	b := NewBinance(config.VenueConfig{Name: "binance"}, testNormalizer(), testLogger())

	_, _, err := b.parseMessage([]byte(`{"e":"24hrTicker","E":1714564800123,"s":"BTCUSDT","c":"bad"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, _, err = b.parseMessage([]byte(`{"e":"24hrTicker","E":0,"s":"BTCUSDT","c":"50000"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestBitstampParseTrade(t *testing.T) {
	b := NewBitstamp(config.VenueConfig{Name: "bitstamp", Symbols: []string{"btcusd"}}, testNormalizer(), testLogger())

	raw := []byte(`{
		"event": "trade",
		"channel": "live_trades_btcusd",
		"data": {"price": 50050.5, "amount": 0.25, "timestamp": "1714564800"}
	}`)

	obs, ok, err := b.parseMessage(raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bitstamp", obs.Venue)
	assert.Equal(t, "BTC-USD", obs.Instrument)
	assert.Equal(t, 50050.5, obs.Price)
	assert.Equal(t, 0.25, obs.Volume)
	// Trade channels carry no quotes.
	assert.Zero(t, obs.Bid)
	assert.Zero(t, obs.Ask)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), obs.Timestamp)
}

func TestBitstampIgnoresForeignChannelsAndAcks(t *testing.T) {
	b := NewBitstamp(config.VenueConfig{Name: "bitstamp", Symbols: []string{"btcusd"}}, testNormalizer(), testLogger())

	for _, raw := range []string{
		`{"event":"bts:subscription_succeeded","channel":"live_trades_btcusd","data":{}}`,
		`{"event":"trade","channel":"live_trades_ethusd","data":{"price":3000,"amount":1,"timestamp":"1714564800"}}`,
	} {
		_, ok, err := b.parseMessage([]byte(raw))
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestBitstampMalformedTrade(t *testing.T) {
	b := NewBitstamp(config.VenueConfig{Name: "bitstamp", Symbols: []string{"btcusd"}}, testNormalizer(), testLogger())

	_, _, err := b.parseMessage([]byte(`{"event":"trade","channel":"live_trades_btcusd","data":{"price":0,"amount":1,"timestamp":"1714564800"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, _, err = b.parseMessage([]byte(`{"event":"trade","channel":"live_trades_btcusd","data":{"price":50000,"amount":1,"timestamp":"soon"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestRegistryRejectsUnknownVenue(t *testing.T) {
	_, err := ForConfig(config.VenueConfig{Name: "kraken"}, testNormalizer(), testLogger())
	assert.Error(t, err)

	adapter, err := ForConfig(config.VenueConfig{Name: "coinbase"}, testNormalizer(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "coinbase", adapter.Name())
}
