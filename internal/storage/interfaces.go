// Package storage defines the append-only result sink: match events and
// trade outcomes. Records are inserted once and never mutated.
package storage

import (
	"context"

	"tweet-sniper/internal/domain"
)

// MatchEventStore persists detected matches.
type MatchEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.MatchEvent) error

	// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, eventID string) (*domain.MatchEvent, error)

	// List returns all events ordered by detection time ascending.
	List(ctx context.Context) ([]*domain.MatchEvent, error)
}

// TradeResultStore persists trade execution outcomes.
type TradeResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
	Insert(ctx context.Context, r *domain.TradeResult) error

	// GetByEventID retrieves all results for a match event, ordered by
	// creation time ascending.
	GetByEventID(ctx context.Context, eventID string) ([]*domain.TradeResult, error)

	// List returns all results ordered by creation time ascending.
	List(ctx context.Context) ([]*domain.TradeResult, error)
}
