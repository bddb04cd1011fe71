// Package notify delivers opportunity alerts to external channels. Alerts are
// dispatched to all registered senders (Telegram, Discord) and can be gated by
// a minimum profit threshold so operators only hear about spreads worth acting
// on.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Alerter forwards detected opportunities to one or more Senders. It sits on
// the detector's sink list, so every emission passes through it; the
// MinProfitPct gate keeps low-margin noise out of operator channels.
type Alerter struct {
	senders      []Sender
	minProfitPct float64
	logger       *slog.Logger
}

var _ domain.OpportunitySink = (*Alerter)(nil)

// NewAlerter creates an Alerter that will deliver to the given senders. Only
// opportunities with ProfitPct at or above minProfitPct are forwarded; zero
// forwards everything the detector emits.
func NewAlerter(senders []Sender, minProfitPct float64, logger *slog.Logger) *Alerter {
	return &Alerter{
		senders:      senders,
		minProfitPct: minProfitPct,
		logger:       logger.With(slog.String("component", "alerter")),
	}
}

// PublishOpportunity formats the opportunity and dispatches it to all senders.
func (a *Alerter) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if opp.ProfitPct < a.minProfitPct {
		a.logger.DebugContext(ctx, "opportunity below alert threshold",
			slog.String("pair", opp.PairKey()),
			slog.Float64("profit_pct", opp.ProfitPct),
		)
		return nil
	}

	title := fmt.Sprintf("Arbitrage: %s %.2f%% net", opp.Instrument, opp.ProfitPct)
	message := formatOpportunity(opp)

	return a.dispatch(ctx, title, message)
}

// dispatch iterates over all senders and sends the alert. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (a *Alerter) dispatch(ctx context.Context, title, message string) error {
	if len(a.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			a.logger.DebugContext(ctx, "alert sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatOpportunity renders the alert body shared by all channels.
func formatOpportunity(opp domain.ArbitrageOpportunity) string {
	return fmt.Sprintf(
		"Buy %s on %s at %.4f\nSell on %s at %.4f\nSpread %.3f%%, net profit %.3f%% after fees\nDetected %s",
		opp.Instrument,
		opp.BuyVenue, opp.BuyPrice,
		opp.SellVenue, opp.SellPrice,
		opp.SpreadPct, opp.ProfitPct,
		opp.DetectedAt.UTC().Format("15:04:05 MST"),
	)
}
