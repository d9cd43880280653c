package memory

import (
	"context"
	"sort"
	"sync"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/storage"
)

// MatchEventStore is an in-memory implementation of storage.MatchEventStore.
type MatchEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MatchEvent // keyed by event_id
}

// NewMatchEventStore creates a new in-memory match event store.
func NewMatchEventStore() *MatchEventStore {
	return &MatchEventStore{
		data: make(map[string]*domain.MatchEvent),
	}
}

// Compile-time interface check.
var _ storage.MatchEventStore = (*MatchEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *MatchEventStore) Insert(_ context.Context, e *domain.MatchEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.EventID] = &copy
	return nil
}

// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
func (s *MatchEventStore) GetByID(_ context.Context, eventID string) (*domain.MatchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[eventID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *e
	return &copy, nil
}

// List returns all events ordered by detection time ascending.
func (s *MatchEventStore) List(_ context.Context) ([]*domain.MatchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MatchEvent, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DetectedAt.Before(result[j].DetectedAt)
	})
	return result, nil
}
