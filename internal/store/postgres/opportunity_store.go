package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityArchive and
// domain.OpportunitySink using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, buy_venue, sell_venue, instrument,
	buy_price, sell_price, spread_pct, profit_pct, confidence_score, detected_at`

// Insert stores a detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, buy_venue, sell_venue, instrument,
			buy_price, sell_price, spread_pct, profit_pct, confidence_score, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.BuyVenue, opp.SellVenue, opp.Instrument,
		opp.BuyPrice, opp.SellPrice, opp.SpreadPct, opp.ProfitPct, opp.Confidence, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// PublishOpportunity lets the store sit directly on the detector's sink
// list: every emitted opportunity is archived as it is detected.
func (s *OpportunityStore) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	return s.Insert(ctx, opp)
}

// ListRecent returns the most recently detected archived opportunities,
// newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		if err := rows.Scan(
			&opp.ID, &opp.BuyVenue, &opp.SellVenue, &opp.Instrument,
			&opp.BuyPrice, &opp.SellPrice, &opp.SpreadPct, &opp.ProfitPct, &opp.Confidence, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface checks.
var (
	_ domain.OpportunityArchive = (*OpportunityStore)(nil)
	_ domain.OpportunitySink    = (*OpportunityStore)(nil)
)
