package domain

import "strings"

// WatchedPair is a single (handle, keyword) monitoring unit as declared in
// configuration. Immutable once scheduled.
type WatchedPair struct {
	Handle    string  // account name being watched, without leading @
	Keyword   string  // trigger keyword; empty means "any new post"
	Mint      string  // target token mint to buy on match (optional)
	AmountSOL float64 // purchase size in SOL
}

// Key uniquely identifies a pair within the active set.
func (p WatchedPair) Key() string {
	return strings.ToLower(p.Handle) + "|" + strings.ToLower(p.Keyword)
}

// ResolvedPair is a WatchedPair annotated with the stable user identifier
// its handle resolves to. UserID is empty until resolution succeeds.
type ResolvedPair struct {
	WatchedPair
	UserID string
}
