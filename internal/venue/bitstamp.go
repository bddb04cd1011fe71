package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/symbols"
)

// bitstampChannelPrefix names the per-symbol trade channels.
const bitstampChannelPrefix = "live_trades_"

// Bitstamp only exposes a trade channel: no bid/ask, epoch-second
// timestamps, one subscription request per symbol.
type Bitstamp struct {
	cfg    config.VenueConfig
	norm   *symbols.Normalizer
	logger *slog.Logger
	conn   conn

	subscribed map[string]bool // venue-local symbols we asked for
}

// NewBitstamp creates the Bitstamp adapter.
func NewBitstamp(cfg config.VenueConfig, norm *symbols.Normalizer, logger *slog.Logger) *Bitstamp {
	subscribed := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		subscribed[s] = true
	}
	return &Bitstamp{
		cfg:        cfg,
		norm:       norm,
		logger:     logger.With(slog.String("venue", cfg.Name)),
		subscribed: subscribed,
	}
}

// Name returns the configured venue name.
func (b *Bitstamp) Name() string { return b.cfg.Name }

// Connect dials the Bitstamp websocket.
func (b *Bitstamp) Connect(ctx context.Context) error {
	return b.conn.dial(ctx, b.cfg.WSURL)
}

// Subscribe requests the live-trades channel for each configured symbol.
func (b *Bitstamp) Subscribe(ctx context.Context) error {
	for _, symbol := range b.cfg.Symbols {
		req := map[string]any{
			"event": "bts:subscribe",
			"data":  map[string]string{"channel": bitstampChannelPrefix + symbol},
		}
		if err := b.conn.writeJSON(req); err != nil {
			return fmt.Errorf("bitstamp: subscribe %s: %w", symbol, err)
		}
	}
	b.logger.Info("subscribed", slog.Int("symbols", len(b.cfg.Symbols)))
	return nil
}

// Stream reads trade events until the connection drops.
func (b *Bitstamp) Stream(ctx context.Context, emit ObservationFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := b.conn.readMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bitstamp: %w", err)
		}
		obs, ok, err := b.parseMessage(raw)
		if err != nil {
			b.logger.Warn("skipping malformed message", slog.String("error", err.Error()))
			continue
		}
		if ok {
			emit(obs)
		}
	}
}

// Close tears down the connection.
func (b *Bitstamp) Close() error { return b.conn.close() }

// bitstampTrade is the wire shape of a trade event. Price and amount are
// numbers; the timestamp is an epoch-second string.
type bitstampTrade struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Data    struct {
		Price     float64 `json:"price"`
		Amount    float64 `json:"amount"`
		Timestamp string  `json:"timestamp"`
	} `json:"data"`
}

// parseMessage returns (obs, true, nil) for a trade on a channel we
// subscribed to; reconnect acks and foreign channels yield (zero, false,
// nil). Bitstamp has no bid/ask on this channel, so both stay unset.
func (b *Bitstamp) parseMessage(raw []byte) (domain.PriceObservation, bool, error) {
	var msg bitstampTrade
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if msg.Event != "trade" {
		return domain.PriceObservation{}, false, nil
	}

	symbol := strings.TrimPrefix(msg.Channel, bitstampChannelPrefix)
	if !b.subscribed[symbol] {
		return domain.PriceObservation{}, false, nil
	}
	if msg.Data.Price <= 0 {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: price %v", domain.ErrParse, msg.Data.Price)
	}
	epoch, err := strconv.ParseInt(msg.Data.Timestamp, 10, 64)
	if err != nil || epoch <= 0 {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: timestamp %q", domain.ErrParse, msg.Data.Timestamp)
	}

	return domain.PriceObservation{
		Venue:      b.cfg.Name,
		Instrument: b.norm.Normalize(symbol),
		Price:      msg.Data.Price,
		Volume:     msg.Data.Amount,
		Timestamp:  domain.TimeFromEpoch(epoch),
	}, true, nil
}

var _ Adapter = (*Bitstamp)(nil)
