package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/storage"
)

// MatchEventStore implements storage.MatchEventStore using PostgreSQL.
type MatchEventStore struct {
	pool *Pool
}

// NewMatchEventStore creates a new MatchEventStore.
func NewMatchEventStore(pool *Pool) *MatchEventStore {
	return &MatchEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MatchEventStore = (*MatchEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *MatchEventStore) Insert(ctx context.Context, e *domain.MatchEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO match_events (
			event_id, handle, keyword, mint, amount_sol,
			post_id, post_text, detected_at, purchase_executed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		e.EventID, e.Handle, e.Keyword, e.Mint, e.AmountSOL,
		e.PostID, e.PostText, e.DetectedAt, e.PurchaseExecuted,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert match event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
func (s *MatchEventStore) GetByID(ctx context.Context, eventID string) (*domain.MatchEvent, error) {
	query := `
		SELECT event_id, handle, keyword, mint, amount_sol,
		       post_id, post_text, detected_at, purchase_executed
		FROM match_events
		WHERE event_id = $1
	`

	row := s.pool.QueryRow(ctx, query, eventID)
	e, err := scanMatchEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get match event by id: %w", err)
	}
	return e, nil
}

// List returns all events ordered by detection time ascending.
func (s *MatchEventStore) List(ctx context.Context) ([]*domain.MatchEvent, error) {
	query := `
		SELECT event_id, handle, keyword, mint, amount_sol,
		       post_id, post_text, detected_at, purchase_executed
		FROM match_events
		ORDER BY detected_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list match events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MatchEvent
	for rows.Next() {
		e, err := scanMatchEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match event rows: %w", err)
	}
	return events, nil
}

func scanMatchEvent(row pgx.Row) (*domain.MatchEvent, error) {
	var e domain.MatchEvent
	err := row.Scan(
		&e.EventID, &e.Handle, &e.Keyword, &e.Mint, &e.AmountSOL,
		&e.PostID, &e.PostText, &e.DetectedAt, &e.PurchaseExecuted,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
