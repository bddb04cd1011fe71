package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/symbols"
)

// Coinbase streams the public "ticker" channel, which carries last trade
// price plus best bid/ask and an RFC3339 timestamp per message.
type Coinbase struct {
	cfg    config.VenueConfig
	norm   *symbols.Normalizer
	logger *slog.Logger
	conn   conn
}

// NewCoinbase creates the Coinbase adapter.
func NewCoinbase(cfg config.VenueConfig, norm *symbols.Normalizer, logger *slog.Logger) *Coinbase {
	return &Coinbase{
		cfg:    cfg,
		norm:   norm,
		logger: logger.With(slog.String("venue", cfg.Name)),
	}
}

// Name returns the configured venue name.
func (c *Coinbase) Name() string { return c.cfg.Name }

// Connect dials the Coinbase websocket feed.
func (c *Coinbase) Connect(ctx context.Context) error {
	return c.conn.dial(ctx, c.cfg.WSURL)
}

// Subscribe requests the ticker channel for all configured products.
func (c *Coinbase) Subscribe(ctx context.Context) error {
	req := map[string]any{
		"type":        "subscribe",
		"product_ids": c.cfg.Symbols,
		"channels":    []string{"ticker"},
	}
	if err := c.conn.writeJSON(req); err != nil {
		return fmt.Errorf("coinbase: subscribe: %w", err)
	}
	c.logger.Info("subscribed", slog.Int("symbols", len(c.cfg.Symbols)))
	return nil
}

// Stream reads ticker messages until the connection drops.
func (c *Coinbase) Stream(ctx context.Context, emit ObservationFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.conn.readMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("coinbase: %w", err)
		}
		obs, ok, err := c.parseMessage(raw)
		if err != nil {
			c.logger.Warn("skipping malformed message", slog.String("error", err.Error()))
			continue
		}
		if ok {
			emit(obs)
		}
	}
}

// Close tears down the connection.
func (c *Coinbase) Close() error { return c.conn.close() }

// coinbaseTicker is the wire shape of a ticker message. Prices arrive as
// decimal strings.
type coinbaseTicker struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Volume24h string `json:"volume_24h"`
	Time      string `json:"time"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
}

// parseMessage returns (obs, true, nil) for a ticker message, (zero, false,
// nil) for other message types (subscription acks, heartbeats), and a
// domain.ErrParse-wrapped error for a ticker with malformed fields.
func (c *Coinbase) parseMessage(raw []byte) (domain.PriceObservation, bool, error) {
	var msg coinbaseTicker
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if msg.Type != "ticker" {
		return domain.PriceObservation{}, false, nil
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("%w: price %q", domain.ErrParse, msg.Price)
	}
	ts, err := domain.TimeFromVenueString(msg.Time)
	if err != nil {
		return domain.PriceObservation{}, false, err
	}

	return domain.PriceObservation{
		Venue:      c.cfg.Name,
		Instrument: c.norm.Normalize(msg.ProductID),
		Price:      price,
		Bid:        optionalFloat(msg.BestBid),
		Ask:        optionalFloat(msg.BestAsk),
		Volume:     optionalFloat(msg.Volume24h),
		Timestamp:  ts,
	}, true, nil
}

// optionalFloat parses venue decimal strings for fields the schema allows to
// be absent; empty or malformed values degrade to 0 (unset) rather than
// failing the whole message.
func optionalFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var _ Adapter = (*Coinbase)(nil)
