// Package detector evaluates fresh cross-venue price observations for
// fee-adjusted arbitrage opportunities.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/ledger"
	"github.com/alanyoungcy/arbscan/internal/pricestore"
)

// defaultFeePct is the conservative taker-fee estimate applied to venues
// missing from the fee table.
const defaultFeePct = 0.5

// Config holds the detection thresholds.
type Config struct {
	// MinProfitPct is the minimum profit after fees (percent) to emit.
	MinProfitPct float64
	// MaxAge is the strict staleness cutoff; an observation aged exactly
	// MaxAge is excluded from pairing.
	MaxAge time.Duration
	// FeePct maps venue name to taker fee percentage.
	FeePct map[string]float64
}

// Detector re-evaluates all venue pairs for an instrument on every new
// observation. It is triggered synchronously after the price state store
// write, so the store always already reflects the triggering observation.
// Detection never fails on valid-shaped input: non-positive prices are
// numerically skipped rather than surfaced as errors.
type Detector struct {
	cfg    Config
	store  *pricestore.Store
	ledger *ledger.Ledger
	sinks  []domain.OpportunitySink
	logger *slog.Logger

	// now is swappable for boundary tests.
	now func() time.Time

	// scratch is the reusable pair-evaluation buffer; Observe is serialized
	// so one buffer suffices and per-tick work allocates nothing once the
	// slice has grown to venue count.
	mu      sync.Mutex
	scratch []domain.PriceObservation
}

// New creates a Detector writing into the given ledger. Sinks receive every
// emitted opportunity after the ledger append; sink errors are logged and
// contained.
func New(cfg Config, store *pricestore.Store, led *ledger.Ledger, sinks []domain.OpportunitySink, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		store:  store,
		ledger: led,
		sinks:  sinks,
		logger: logger.With(slog.String("component", "detector")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Observe runs one detection pass for obs.Instrument. The snapshot it reads
// may be slightly inconsistent across keys; a pairing missed on this tick is
// caught on the next tick from either side. Sink dispatch happens after the
// evaluation lock is released so sink latency never serializes detection
// across venues.
func (d *Detector) Observe(ctx context.Context, obs domain.PriceObservation) {
	var emitted []domain.ArbitrageOpportunity

	d.mu.Lock()

	entries := d.store.Snapshot(obs.Instrument, d.scratch[:0])
	d.scratch = entries[:0]

	// Strict staleness filter: age must be < MaxAge, boundary excluded.
	now := d.now()
	fresh := entries[:0]
	for _, e := range entries {
		if e.Age(now) < d.cfg.MaxAge {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) < 2 {
		d.mu.Unlock()
		return
	}

	// Every unordered pair, both directions: fees differ per venue, so a
	// spread can be profitable one way only.
	for i := 0; i < len(fresh); i++ {
		for j := i + 1; j < len(fresh); j++ {
			if opp, ok := d.evaluate(ctx, fresh[i], fresh[j]); ok {
				emitted = append(emitted, opp)
			}
			if opp, ok := d.evaluate(ctx, fresh[j], fresh[i]); ok {
				emitted = append(emitted, opp)
			}
		}
	}

	d.mu.Unlock()

	for _, opp := range emitted {
		d.publish(ctx, opp)
	}
}

// publish hands one emitted opportunity to every sink. Sink errors are
// logged and contained; they never propagate back into detection.
func (d *Detector) publish(ctx context.Context, opp domain.ArbitrageOpportunity) {
	for _, sink := range d.sinks {
		if err := sink.PublishOpportunity(ctx, opp); err != nil {
			d.logger.WarnContext(ctx, "opportunity sink failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// evaluate scores one directed buy/sell assignment and appends to the ledger
// when profit after fees clears the threshold. The returned opportunity is
// dispatched to sinks by the caller after the evaluation lock is released.
func (d *Detector) evaluate(ctx context.Context, buy, sell domain.PriceObservation) (domain.ArbitrageOpportunity, bool) {
	buyPrice := buy.Price
	if buy.Ask > 0 {
		buyPrice = buy.Ask
	}
	sellPrice := sell.Price
	if sell.Bid > 0 {
		sellPrice = sell.Bid
	}
	if buyPrice <= 0 || sellPrice <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	spreadPct := (sellPrice - buyPrice) / buyPrice * 100
	profitPct := spreadPct - (d.fee(buy.Venue) + d.fee(sell.Venue))
	if profitPct < d.cfg.MinProfitPct {
		return domain.ArbitrageOpportunity{}, false
	}

	opp := domain.ArbitrageOpportunity{
		ID:         uuid.NewString(),
		BuyVenue:   buy.Venue,
		SellVenue:  sell.Venue,
		Instrument: buy.Instrument,
		BuyPrice:   buyPrice,
		SellPrice:  sellPrice,
		SpreadPct:  spreadPct,
		ProfitPct:  profitPct,
		DetectedAt: d.now(),
	}
	d.ledger.Append(opp)

	d.logger.InfoContext(ctx, "arbitrage opportunity",
		slog.String("instrument", opp.Instrument),
		slog.String("buy_venue", opp.BuyVenue),
		slog.Float64("buy_price", opp.BuyPrice),
		slog.String("sell_venue", opp.SellVenue),
		slog.Float64("sell_price", opp.SellPrice),
		slog.Float64("profit_pct", opp.ProfitPct),
	)

	return opp, true
}

func (d *Detector) fee(venue string) float64 {
	if pct, ok := d.cfg.FeePct[venue]; ok {
		return pct
	}
	return defaultFeePct
}
