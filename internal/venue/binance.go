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

// Binance selects its streams in the connect URL (one "<symbol>@ticker"
// path segment per instrument), so Subscribe is a no-op. Timestamps arrive
// as epoch milliseconds.
type Binance struct {
	cfg    config.VenueConfig
	norm   *symbols.Normalizer
	logger *slog.Logger
	conn   conn
}

// NewBinance creates the Binance adapter.
func NewBinance(cfg config.VenueConfig, norm *symbols.Normalizer, logger *slog.Logger) *Binance {
	return &Binance{
		cfg:    cfg,
		norm:   norm,
		logger: logger.With(slog.String("venue", cfg.Name)),
	}
}

// Name returns the configured venue name.
func (b *Binance) Name() string { return b.cfg.Name }

// Connect dials the stream URL with every configured symbol embedded.
func (b *Binance) Connect(ctx context.Context) error {
	streams := make([]string, 0, len(b.cfg.Symbols))
	for _, s := range b.cfg.Symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	url := b.cfg.WSURL + "/" + strings.Join(streams, "/")
	return b.conn.dial(ctx, url)
}

// Subscribe is a no-op: stream selection happened in the connect URL.
func (b *Binance) Subscribe(ctx context.Context) error {
	b.logger.Info("subscribed via stream url", slog.Int("symbols", len(b.cfg.Symbols)))
	return nil
}

// Stream reads 24hrTicker events until the connection drops.
func (b *Binance) Stream(ctx context.Context, emit ObservationFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := b.conn.readMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("binance: %w", err)
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
func (b *Binance) Close() error { return b.conn.close() }

// binanceTicker is the wire shape of a 24hrTicker event.
type binanceTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"` // epoch milliseconds
	Symbol    string `json:"s"`
	Last      string `json:"c"`
	Volume    string `json:"v"`
	Bid       string `json:"b"`
	Ask       string `json:"a"`
}

// parseMessage returns (obs, true, nil) for a 24hrTicker event and
// (zero, false, nil) for anything else on the stream.
func (b *Binance) parseMessage(raw []byte) (domain.PriceObservation, bool, error) {
	var msg binanceTicker
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if msg.Event != "24hrTicker" {
		return domain.PriceObservation{}, false, nil
	}

	price, err := strconv.ParseFloat(msg.Last, 64)
	if err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: price %q", domain.ErrParse, msg.Last)
	}
	if msg.EventTime <= 0 {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: event time %d", domain.ErrParse, msg.EventTime)
	}

	return domain.PriceObservation{
		Venue:      b.cfg.Name,
		Instrument: b.norm.Normalize(msg.Symbol),
		Price:      price,
		Bid:        optionalFloat(msg.Bid),
		Ask:        optionalFloat(msg.Ask),
		Volume:     optionalFloat(msg.Volume),
		Timestamp:  domain.TimeFromEpoch(msg.EventTime),
	}, true, nil
}

var _ Adapter = (*Binance)(nil)
