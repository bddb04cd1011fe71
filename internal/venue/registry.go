package venue

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/symbols"
)

// ForConfig constructs the adapter implementation matching the venue name.
// Adapter selection is by name rather than by wire probing: each venue's
// protocol differences (subscribe shape, timestamp format, missing bid/ask)
// are baked into its concrete type.
func ForConfig(cfg config.VenueConfig, norm *symbols.Normalizer, logger *slog.Logger) (Adapter, error) {
	switch cfg.Name {
	case "coinbase":
		return NewCoinbase(cfg, norm, logger), nil
	case "binance":
		return NewBinance(cfg, norm, logger), nil
	case "bitstamp":
		return NewBitstamp(cfg, norm, logger), nil
	default:
		return nil, fmt.Errorf("venue: no adapter for %q", cfg.Name)
	}
}
