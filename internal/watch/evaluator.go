package watch

import "strings"

// Matches decides whether post text satisfies a pair's trigger keyword.
// An empty or whitespace-only keyword matches any non-empty post. Otherwise
// the predicate is case-insensitive substring containment; no tokenization
// or stemming, exact substring semantics.
func Matches(postText, keyword string) bool {
	if strings.TrimSpace(keyword) == "" {
		return strings.TrimSpace(postText) != ""
	}
	return strings.Contains(strings.ToLower(postText), strings.ToLower(keyword))
}
