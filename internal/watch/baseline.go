package watch

import (
	"strings"
	"sync"
)

// BaselineStore tracks the last-processed post id per handle.
// A baseline only ever advances to a strictly larger id. Pairs watching the
// same handle share one baseline.
type BaselineStore struct {
	mu  sync.RWMutex
	ids map[string]string // lowercased handle -> post id
}

// NewBaselineStore creates an empty baseline store.
func NewBaselineStore() *BaselineStore {
	return &BaselineStore{ids: make(map[string]string)}
}

// Get returns the baseline for a handle and whether one is set.
func (b *BaselineStore) Get(handle string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.ids[strings.ToLower(handle)]
	return id, ok
}

// Init records the first observed post id for a handle. No-op if a baseline
// already exists.
func (b *BaselineStore) Init(handle, postID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(handle)
	if _, ok := b.ids[key]; !ok {
		b.ids[key] = postID
	}
}

// Advance moves the baseline to postID if it is strictly greater than the
// current value. Reports whether the baseline advanced.
func (b *BaselineStore) Advance(handle, postID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(handle)
	cur, ok := b.ids[key]
	if !ok {
		b.ids[key] = postID
		return false
	}
	if CompareIDs(postID, cur) <= 0 {
		return false
	}
	b.ids[key] = postID
	return true
}

// CompareIDs compares two post identifiers numerically. Identifiers are
// monotonically increasing integers encoded as decimal strings and routinely
// exceed 64 bits, so both integer parsing and plain string comparison are
// invalid ("9" must sort below "10").
func CompareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
