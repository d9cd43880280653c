package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tweet-sniper/internal/httputil"
)

func fastRetry() ClientOption {
	return WithRetry(httputil.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
}

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", fastRetry(), WithRateLimit(rate.Inf, 1))
}

func TestResolveUserID_SendsAPIKey(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"data":{"id":"12345"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	id, err := c.ResolveUserID(context.Background(), "someuser")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
	assert.Equal(t, "test-key", gotKey.Load())
}

func TestResolveUserID_CachesByHandle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{"id":"777"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		id, err := c.ResolveUserID(context.Background(), "someuser")
		require.NoError(t, err)
		assert.Equal(t, "777", id)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveUserID_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ResolveUserID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLatestPost_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"tweets":[{"id":"101","text":"coin launch"}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	post, err := c.LatestPost(context.Background(), "12345")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "101", post.ID)
	assert.Equal(t, "coin launch", post.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLatestPost_NoPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"tweets":[]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	post, err := c.LatestPost(context.Background(), "12345")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestLatestPost_ExhaustedRetriesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.LatestPost(context.Background(), "12345")
	require.Error(t, err)
}
