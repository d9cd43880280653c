package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/storage/memory"
	"tweet-sniper/internal/twitter"
)

// fakeSource scripts handle resolution and latest-post fetches.
type fakeSource struct {
	mu         sync.Mutex
	ids        map[string]string // handle -> user id
	resolveErr map[string]error
	posts      map[string]*twitter.Post // user id -> current latest
	postErr    map[string]error
	fetches    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ids:        make(map[string]string),
		resolveErr: make(map[string]error),
		posts:      make(map[string]*twitter.Post),
		postErr:    make(map[string]error),
	}
}

func (f *fakeSource) ResolveUserID(_ context.Context, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resolveErr[handle]; err != nil {
		return "", err
	}
	return f.ids[handle], nil
}

func (f *fakeSource) LatestPost(_ context.Context, userID string) (*twitter.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.postErr[userID]; err != nil {
		return nil, err
	}
	return f.posts[userID], nil
}

func (f *fakeSource) setPost(userID, postID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[userID] = &twitter.Post{ID: postID, Text: text}
}

// fakeExecutor records executed events and returns a canned result.
type fakeExecutor struct {
	mu     sync.Mutex
	events []*domain.MatchEvent
	fail   bool
}

func (f *fakeExecutor) Execute(_ context.Context, event *domain.MatchEvent) *domain.TradeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	r := &domain.TradeResult{
		ResultID:  "res-" + event.EventID,
		EventID:   event.EventID,
		Mint:      event.Mint,
		AmountSOL: 0.001,
		CreatedAt: time.Now(),
	}
	if f.fail {
		r.Stage = domain.StageQuote
		r.FailureReason = "quote: HTTP 500"
	} else {
		r.Stage = domain.StageSubmit
		r.Signature = "sig-" + event.PostID
	}
	return r
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type schedFixture struct {
	sched    *Scheduler
	source   *fakeSource
	executor *fakeExecutor
	events   *memory.MatchEventStore
	results  *memory.TradeResultStore
}

func newFixture(t *testing.T, pairs ...domain.WatchedPair) *schedFixture {
	t.Helper()
	f := &schedFixture{
		source:   newFakeSource(),
		executor: &fakeExecutor{},
		events:   memory.NewMatchEventStore(),
		results:  memory.NewTradeResultStore(),
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	f.sched = New(Options{
		Pairs:    pairs,
		Source:   f.source,
		Executor: f.executor,
		Events:   f.events,
		Results:  f.results,
		Logger:   logger,
	})
	return f
}

func TestScheduler_BaselineNeverMatches(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "coin launch imminent")

	ctx := context.Background()
	f.sched.visit(ctx) // resolve + baseline init
	f.sched.visit(ctx) // poll: same id as baseline

	f.sched.WaitPipelines()
	assert.Equal(t, 0, f.executor.count(), "baseline post must never trigger")

	events, _ := f.events.List(ctx)
	assert.Empty(t, events)
	assert.Equal(t, 1, f.sched.Status().Active)
}

func TestScheduler_NewPostTriggersExactlyOnce(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "old news")

	ctx := context.Background()
	f.sched.visit(ctx) // baseline = 100

	f.source.setPost("u1", "101", "Coin Launch")
	// Repeated ticks after the match must not re-trigger.
	for i := 0; i < 5; i++ {
		f.sched.visit(ctx)
	}
	f.sched.WaitPipelines()

	assert.Equal(t, 1, f.executor.count(), "at most one purchase attempt per pair")

	events, err := f.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "101", events[0].PostID)
	assert.False(t, events[0].PurchaseExecuted)

	results, err := f.results.GetByEventID(ctx, events[0].EventID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sig-101", results[0].Signature)

	st := f.sched.Status()
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 1, st.Matched)
}

func TestScheduler_NoMatchAdvancesBaselineKeepsPair(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx) // baseline = 100

	f.source.setPost("u1", "101", "just some weather talk")
	f.sched.visit(ctx)

	f.sched.WaitPipelines()
	assert.Equal(t, 0, f.executor.count())
	assert.Equal(t, 1, f.sched.Status().Active)

	id, ok := f.sched.baselines.Get("someuser")
	require.True(t, ok)
	assert.Equal(t, "101", id, "baseline advances before evaluation")

	// The same post again is not re-evaluated.
	f.sched.visit(ctx)
	f.sched.WaitPipelines()
	assert.Equal(t, 0, f.executor.count())
}

func TestScheduler_NumericIDComparison(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "9", "start")

	ctx := context.Background()
	f.sched.visit(ctx) // baseline = 9

	f.source.setPost("u1", "10", "new post")
	f.sched.visit(ctx) // "10" > "9" numerically

	f.sched.WaitPipelines()
	assert.Equal(t, 1, f.executor.count(), `"10" must be treated as newer than "9"`)
}

func TestScheduler_DuplicatePairsCollapse(t *testing.T) {
	f := newFixture(t,
		domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001},
		domain.WatchedPair{Handle: "SomeUser", Keyword: "Coin", Mint: "M2", AmountSOL: 0.002},
	)
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	require.Equal(t, 1, f.sched.Status().Pending, "pairs with the same key collapse to one")

	ctx := context.Background()
	f.sched.visit(ctx)
	f.source.setPost("u1", "101", "coin drop")
	f.sched.visit(ctx)
	f.sched.WaitPipelines()

	require.Equal(t, 1, f.executor.count())
	assert.Equal(t, "M1", f.executor.events[0].Mint, "first declaration wins")
}

func TestScheduler_StatusSafeDuringResolution(t *testing.T) {
	pairs := make([]domain.WatchedPair, 0, 32)
	for i := 0; i < cap(pairs); i++ {
		pairs = append(pairs, domain.WatchedPair{Handle: fmt.Sprintf("user%02d", i), Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	}
	f := newFixture(t, pairs...)
	for i := range pairs {
		f.source.ids[pairs[i].Handle] = fmt.Sprintf("u%02d", i)
	}

	// Status snapshots race against state transitions unless both hold the
	// scheduler lock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f.sched.Status().Pending > 0 {
		}
	}()

	ctx := context.Background()
	for range pairs {
		f.sched.visit(ctx)
	}
	<-done

	st := f.sched.Status()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, len(pairs), st.Active)
}

func TestScheduler_ResolveFailureRemovesPair(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "badhandle", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.resolveErr["badhandle"] = errors.New("user not found")

	ctx := context.Background()
	f.sched.visit(ctx)

	st := f.sched.Status()
	assert.Equal(t, 0, st.Active+st.Pending, "unresolvable pair is removed permanently")
}

func TestScheduler_FetchErrorKeepsPairActive(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx) // baseline = 100

	f.source.mu.Lock()
	f.source.postErr["u1"] = errors.New("rate limited (429)")
	f.source.mu.Unlock()

	f.sched.visit(ctx)
	f.sched.visit(ctx)

	assert.Equal(t, 1, f.sched.Status().Active, "transient errors are no-data cycles, not removals")

	// Recovery on a later cycle still detects the new post.
	f.source.mu.Lock()
	delete(f.source.postErr, "u1")
	f.source.mu.Unlock()
	f.source.setPost("u1", "101", "coin time")

	f.sched.visit(ctx)
	f.sched.WaitPipelines()
	assert.Equal(t, 1, f.executor.count())
}

func TestScheduler_SharedHandleSelectiveDeactivation(t *testing.T) {
	f := newFixture(t,
		domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001},
		domain.WatchedPair{Handle: "someuser", Keyword: "moon", Mint: "M2", AmountSOL: 0.001},
	)
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx) // resolve pair 1, baseline init
	f.sched.visit(ctx) // resolve pair 2, baseline already set

	require.Equal(t, 2, f.sched.Status().Active)

	f.source.setPost("u1", "101", "the coin is live")
	f.sched.visit(ctx)
	f.sched.WaitPipelines()

	require.Equal(t, 1, f.executor.count())
	assert.Equal(t, "M1", f.executor.events[0].Mint, "only the matching keyword's pair fires")
	assert.Equal(t, 1, f.sched.Status().Active, "non-matching sibling stays active")

	id, _ := f.sched.baselines.Get("someuser")
	assert.Equal(t, "101", id, "sibling shares the advanced baseline")

	// A later post matching the sibling still fires it.
	f.source.setPost("u1", "102", "to the moon")
	f.sched.visit(ctx)
	f.sched.WaitPipelines()
	require.Equal(t, 2, f.executor.count())
	assert.Equal(t, "M2", f.executor.events[1].Mint)
	assert.Equal(t, 0, f.sched.Status().Active)
}

func TestScheduler_AlertOnlyPairSkipsPipeline(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "", Mint: "", AmountSOL: 0})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx)

	f.source.setPost("u1", "101", "anything")
	f.sched.visit(ctx)
	f.sched.WaitPipelines()

	assert.Equal(t, 0, f.executor.count(), "no mint configured, nothing to buy")
	events, _ := f.events.List(ctx)
	assert.Len(t, events, 1, "match is still recorded")
}

func TestScheduler_FailedPurchaseRecordedNotRetried(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.executor.fail = true
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx)

	f.source.setPost("u1", "101", "coin drop")
	for i := 0; i < 4; i++ {
		f.sched.visit(ctx)
	}
	f.sched.WaitPipelines()

	assert.Equal(t, 1, f.executor.count(), "failed purchase is not re-attempted")

	events, _ := f.events.List(ctx)
	require.Len(t, events, 1)
	assert.False(t, events[0].PurchaseExecuted)

	results, _ := f.results.GetByEventID(ctx, events[0].EventID)
	require.Len(t, results, 1)
	assert.Equal(t, domain.StageQuote, results[0].Stage)
	assert.NotEmpty(t, results[0].FailureReason)
}

func TestScheduler_StopClearsSetAndSignalsDone(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "coin", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	f.sched.Stop()

	select {
	case <-f.sched.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not signalled after Stop")
	}

	st := f.sched.Status()
	assert.Equal(t, 0, st.Active+st.Pending)
}

func TestScheduler_DoneWhenAllPairsMatched(t *testing.T) {
	f := newFixture(t, domain.WatchedPair{Handle: "someuser", Keyword: "", Mint: "M1", AmountSOL: 0.001})
	f.source.ids["someuser"] = "u1"
	f.source.setPost("u1", "100", "start")

	ctx := context.Background()
	f.sched.visit(ctx)
	f.source.setPost("u1", "101", "go")
	f.sched.visit(ctx)

	require.True(t, f.sched.empty())
}
