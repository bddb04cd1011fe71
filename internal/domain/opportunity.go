package domain

import "time"

// ArbitrageOpportunity is a detected, fee-adjusted profitable cross-venue
// price discrepancy at a point in time. Immutable after creation.
type ArbitrageOpportunity struct {
	ID         string    `json:"id"`
	BuyVenue   string    `json:"buy_venue"`
	SellVenue  string    `json:"sell_venue"`
	Instrument string    `json:"instrument"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	SpreadPct  float64   `json:"spread_pct"`
	ProfitPct  float64   `json:"profit_pct"` // spread minus both venues' taker fees
	DetectedAt time.Time `json:"detected_at"`
	// Confidence is populated by external ML scoring; 0 means unscored.
	Confidence float64 `json:"confidence_score"`
}

// PairKey identifies the directed venue pair for frequency bookkeeping,
// e.g. "binance->coinbase:BTC-USD".
func (o ArbitrageOpportunity) PairKey() string {
	return o.BuyVenue + "->" + o.SellVenue + ":" + o.Instrument
}

// PairCount is one entry of the top-pair frequency ranking.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// Statistics summarizes detection activity. It is recomputed per query from
// the ledger, never stored.
type Statistics struct {
	TotalOpportunities int         `json:"total_opportunities"`
	RecentCount        int         `json:"recent_count"`
	AvgProfit          float64     `json:"avg_profit"`
	MaxProfit          float64     `json:"max_profit"`
	MinProfit          float64     `json:"min_profit"`
	TopPairs           []PairCount `json:"top_pairs"`
}
