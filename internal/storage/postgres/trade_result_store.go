package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/storage"
)

// TradeResultStore implements storage.TradeResultStore using PostgreSQL.
type TradeResultStore struct {
	pool *Pool
}

// NewTradeResultStore creates a new TradeResultStore.
func NewTradeResultStore(pool *Pool) *TradeResultStore {
	return &TradeResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *TradeResultStore) Insert(ctx context.Context, r *domain.TradeResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_results (
			result_id, event_id, mint, amount_sol, lamports,
			stage, signature, failure_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ResultID, r.EventID, r.Mint, r.AmountSOL, r.Lamports,
		r.Stage, r.Signature, r.FailureReason, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade result: %w", err)
	}
	return nil
}

// GetByEventID retrieves all results for a match event.
func (s *TradeResultStore) GetByEventID(ctx context.Context, eventID string) ([]*domain.TradeResult, error) {
	query := `
		SELECT result_id, event_id, mint, amount_sol, lamports,
		       stage, signature, failure_reason, created_at
		FROM trade_results
		WHERE event_id = $1
		ORDER BY created_at ASC, result_id ASC
	`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("get trade results by event id: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// List returns all results ordered by creation time ascending.
func (s *TradeResultStore) List(ctx context.Context) ([]*domain.TradeResult, error) {
	query := `
		SELECT result_id, event_id, mint, amount_sol, lamports,
		       stage, signature, failure_reason, created_at
		FROM trade_results
		ORDER BY created_at ASC, result_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trade results: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

func scanTradeResults(rows pgx.Rows) ([]*domain.TradeResult, error) {
	var results []*domain.TradeResult
	for rows.Next() {
		var r domain.TradeResult
		var lamports int64

		err := rows.Scan(
			&r.ResultID, &r.EventID, &r.Mint, &r.AmountSOL, &lamports,
			&r.Stage, &r.Signature, &r.FailureReason, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade result row: %w", err)
		}
		r.Lamports = uint64(lamports)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade result rows: %w", err)
	}
	return results, nil
}
