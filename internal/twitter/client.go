// Package twitter implements the tweet source client: handle resolution and
// latest-post polling against a header-keyed HTTP API.
package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tweet-sniper/internal/httputil"
	"tweet-sniper/internal/observability"
)

// Post is the most recent post of a watched account.
type Post struct {
	ID   string // numeric-ordered identifier encoded as string
	Text string
}

// ErrUserNotFound is returned when handle resolution yields no identifier.
// Resolution failures are configuration errors, not transient ones.
var ErrUserNotFound = fmt.Errorf("user not found")

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 300 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
	DefaultRateLimit   = rate.Limit(5) // requests per second ceiling
	DefaultRateBurst   = 1
	apiKeyHeader       = "X-API-Key"
)

// Client fetches user identifiers and latest posts.
// Safe for concurrent use; the id cache is last-writer-wins, which is
// acceptable because identifiers for a handle never change.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   httputil.RetryConfig
	limiter *rate.Limiter

	cacheMu sync.RWMutex
	idCache map[string]string // lowercased handle -> user id
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithRetry sets the retry policy for fetches.
func WithRetry(cfg httputil.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithRateLimit sets the client-side request-rate ceiling.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// NewClient creates a tweet source client for the given API base URL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry: httputil.RetryConfig{
			MaxAttempts: DefaultMaxRetries,
			BaseDelay:   DefaultRetryDelay,
			MaxDelay:    DefaultMaxDelay,
		},
		limiter: rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		idCache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveUserID resolves a handle to its stable user identifier.
// Results are cached by handle; on a cache hit no network call is made.
func (c *Client) ResolveUserID(ctx context.Context, handle string) (string, error) {
	key := strings.ToLower(handle)
	c.cacheMu.RLock()
	id, ok := c.idCache[key]
	c.cacheMu.RUnlock()
	if ok {
		return id, nil
	}

	raw, err := c.get(ctx, "/twitter/user/info", url.Values{"userName": {handle}})
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", handle, err)
	}

	id, err = extractUserID(raw)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", handle, err)
	}
	if id == "" {
		return "", fmt.Errorf("resolve %s: %w", handle, ErrUserNotFound)
	}

	c.cacheMu.Lock()
	c.idCache[key] = id
	c.cacheMu.Unlock()
	return id, nil
}

// LatestPost fetches the single most recent post for a user id.
// Returns (nil, nil) when the account has no posts.
func (c *Client) LatestPost(ctx context.Context, userID string) (*Post, error) {
	raw, err := c.get(ctx, "/twitter/user/last_tweets", url.Values{
		"userId": {userID},
		"limit":  {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("latest post for %s: %w", userID, err)
	}
	return extractLatestPost(raw)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		observability.RecordFetchLatency(path, time.Since(start).Seconds())
	}()

	endpoint := c.baseURL + path + "?" + query.Encode()
	resp, err := httputil.Do(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(apiKeyHeader, c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
