package memory

import (
	"context"
	"sort"
	"sync"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/storage"
)

// TradeResultStore is an in-memory implementation of storage.TradeResultStore.
type TradeResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeResult // keyed by result_id
}

// NewTradeResultStore creates a new in-memory trade result store.
func NewTradeResultStore() *TradeResultStore {
	return &TradeResultStore{
		data: make(map[string]*domain.TradeResult),
	}
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *TradeResultStore) Insert(_ context.Context, r *domain.TradeResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ResultID] = &copy
	return nil
}

// GetByEventID retrieves all results for an event, ordered by creation time.
func (s *TradeResultStore) GetByEventID(_ context.Context, eventID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeResult
	for _, r := range s.data {
		if r.EventID == eventID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// List returns all results ordered by creation time ascending.
func (s *TradeResultStore) List(_ context.Context) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeResult, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
