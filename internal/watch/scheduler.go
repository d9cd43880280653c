// Package watch implements the monitoring scheduler: per-pair lifecycle,
// baseline tracking, and the polling cadence against the tweet source.
package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/observability"
	"tweet-sniper/internal/storage"
	"tweet-sniper/internal/twitter"
)

// DefaultInterval is the spacing between poll visits. One pair is visited
// per tick, so the aggregate request rate stays bounded regardless of how
// many pairs are watched.
const DefaultInterval = 500 * time.Millisecond

// TweetSource resolves handles and fetches latest posts.
type TweetSource interface {
	ResolveUserID(ctx context.Context, handle string) (string, error)
	LatestPost(ctx context.Context, userID string) (*twitter.Post, error)
}

// Executor runs the trade execution pipeline for one match event.
// It must not panic; failures are reported through the returned result.
type Executor interface {
	Execute(ctx context.Context, event *domain.MatchEvent) *domain.TradeResult
}

// Notifier pushes an operator-facing message. Optional.
type Notifier interface {
	Send(msg string)
}

type pairState int

const (
	statePending pairState = iota // handle not yet resolved
	stateActive                   // resolved, polling for new posts
)

type trackedPair struct {
	resolved domain.ResolvedPair // UserID is empty until resolution completes
	state    pairState
}

// Options configures a Scheduler.
type Options struct {
	Pairs    []domain.WatchedPair
	Source   TweetSource
	Executor Executor
	Events   storage.MatchEventStore
	Results  storage.TradeResultStore
	Notifier Notifier      // optional
	Interval time.Duration // defaults to DefaultInterval
	Deadline time.Duration // 0 means no deadline
	Logger   *logrus.Logger
}

// Status is a point-in-time snapshot of scheduler state.
type Status struct {
	Pending int
	Active  int
	Matched int
}

// Scheduler owns the active-pair set and the baseline map. Both are mutated
// only from its own timer loop; the trade pipeline never touches them.
type Scheduler struct {
	source   TweetSource
	executor Executor
	events   storage.MatchEventStore
	results  storage.TradeResultStore
	notifier Notifier
	interval time.Duration
	deadline time.Duration
	log      *logrus.Logger

	mu        sync.Mutex
	pairs     []*trackedPair
	cursor    int
	matched   int
	baselines *BaselineStore

	done      chan struct{}
	doneOnce  sync.Once
	stopCh    chan struct{}
	stopOnce  sync.Once
	pipelines sync.WaitGroup
}

// New creates a Scheduler. It does not start polling until Start is called.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	s := &Scheduler{
		source:    opts.Source,
		executor:  opts.Executor,
		events:    opts.Events,
		results:   opts.Results,
		notifier:  opts.Notifier,
		interval:  opts.Interval,
		deadline:  opts.Deadline,
		log:       opts.Logger,
		baselines: NewBaselineStore(),
		done:      make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
	seen := make(map[string]struct{}, len(opts.Pairs))
	for _, p := range opts.Pairs {
		if _, ok := seen[p.Key()]; ok {
			opts.Logger.WithFields(logrus.Fields{
				"handle":  p.Handle,
				"keyword": p.Keyword,
			}).Warn("duplicate pair in configuration, ignoring")
			continue
		}
		seen[p.Key()] = struct{}{}
		s.pairs = append(s.pairs, &trackedPair{
			resolved: domain.ResolvedPair{WatchedPair: p},
			state:    statePending,
		})
	}
	observability.UpdateActivePairs(len(s.pairs))
	return s
}

// Start launches the polling loop. It returns immediately; await Done for
// completion.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.pairs) == 0 {
		s.finish()
		return
	}

	if s.deadline > 0 {
		time.AfterFunc(s.deadline, func() {
			s.log.WithField("deadline", s.deadline).Info("monitoring deadline reached, stopping")
			s.Stop()
		})
	}

	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.visit(ctx)
			if s.empty() {
				s.finish()
				return
			}
		}
	}
}

// Stop clears the active set and signals completion. In-flight pipeline
// invocations are not cancelled; they run to completion and their results
// are still recorded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		s.pairs = nil
		s.mu.Unlock()
		observability.UpdateActivePairs(0)
		s.finish()
	})
}

// Done is closed once all pairs are removed or the scheduler is stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// WaitPipelines blocks until all in-flight trade pipelines have finished.
func (s *Scheduler) WaitPipelines() {
	s.pipelines.Wait()
}

// Status reports the current pair counts.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Matched: s.matched}
	for _, tp := range s.pairs {
		if tp.state == statePending {
			st.Pending++
		} else {
			st.Active++
		}
	}
	return st
}

func (s *Scheduler) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs) == 0
}

// visit performs one scheduled tick: exactly one pair is serviced, issuing
// at most one outbound fetch (plus the one-time resolution call).
func (s *Scheduler) visit(ctx context.Context) {
	s.mu.Lock()
	if len(s.pairs) == 0 {
		s.mu.Unlock()
		return
	}
	s.cursor %= len(s.pairs)
	tp := s.pairs[s.cursor]
	s.cursor++
	s.mu.Unlock()

	observability.RecordPoll()

	switch tp.state {
	case statePending:
		s.resolve(ctx, tp)
	case stateActive:
		s.poll(ctx, tp)
	}
}

// resolve moves a pending pair into the active set. Resolution failures are
// configuration errors: the pair is removed permanently, no retry.
func (s *Scheduler) resolve(ctx context.Context, tp *trackedPair) {
	userID, err := s.source.ResolveUserID(ctx, tp.resolved.Handle)
	if err != nil {
		s.log.WithError(err).WithField("handle", tp.resolved.Handle).
			Warn("handle resolution failed, removing pair")
		observability.RecordPairRemoved("resolve_failed")
		s.remove(tp)
		return
	}

	// Status reads tp.state under the same lock.
	s.mu.Lock()
	tp.resolved.UserID = userID
	tp.state = stateActive
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{
		"handle":  tp.resolved.Handle,
		"keyword": tp.resolved.Keyword,
		"user_id": userID,
	}).Info("pair active")

	// Record the baseline right away so the pre-existing latest post never
	// triggers a match. A sibling pair may have initialized it already.
	if _, ok := s.baselines.Get(tp.resolved.Handle); ok {
		return
	}
	post, err := s.source.LatestPost(ctx, userID)
	if err != nil {
		// Transient; the first ACTIVE visit will initialize instead.
		s.log.WithError(err).WithField("handle", tp.resolved.Handle).
			Debug("baseline fetch failed, deferring")
		observability.RecordPollError("baseline_fetch")
		return
	}
	if post != nil {
		s.baselines.Init(tp.resolved.Handle, post.ID)
	}
}

// poll fetches the latest post for an active pair and drives match
// evaluation. Fetch errors are "no data this cycle"; the pair stays active.
func (s *Scheduler) poll(ctx context.Context, tp *trackedPair) {
	post, err := s.source.LatestPost(ctx, tp.resolved.UserID)
	if err != nil {
		s.log.WithError(err).WithField("handle", tp.resolved.Handle).Debug("fetch failed this cycle")
		observability.RecordPollError("fetch")
		return
	}
	if post == nil {
		return
	}

	handle := tp.resolved.Handle
	baseline, ok := s.baselines.Get(handle)
	if !ok {
		// First observed post defines the baseline and never matches.
		s.baselines.Init(handle, post.ID)
		return
	}
	if CompareIDs(post.ID, baseline) <= 0 {
		return
	}

	// Advance before evaluation so the post is evaluated at most once even
	// if the pipeline is slow or fails.
	s.baselines.Advance(handle, post.ID)
	observability.RecordBaselineAdvance()

	s.evaluate(ctx, handle, post)
}

// evaluate runs the new post against every active pair watching the handle.
// Matching pairs are removed from the active set before the pipeline is
// invoked; that removal is the at-most-once purchase guarantee.
func (s *Scheduler) evaluate(ctx context.Context, handle string, post *twitter.Post) {
	var matchedPairs []*trackedPair
	s.mu.Lock()
	kept := s.pairs[:0]
	for _, tp := range s.pairs {
		if tp.state == stateActive && strings.EqualFold(tp.resolved.Handle, handle) && Matches(post.Text, tp.resolved.Keyword) {
			matchedPairs = append(matchedPairs, tp)
			continue
		}
		kept = append(kept, tp)
	}
	s.pairs = kept
	s.matched += len(matchedPairs)
	active := len(s.pairs)
	s.mu.Unlock()
	observability.UpdateActivePairs(active)

	for _, tp := range matchedPairs {
		event := &domain.MatchEvent{
			EventID:    domain.ComputeEventID(tp.resolved.Handle, tp.resolved.Keyword, post.ID),
			Handle:     tp.resolved.Handle,
			Keyword:    tp.resolved.Keyword,
			Mint:       tp.resolved.Mint,
			AmountSOL:  tp.resolved.AmountSOL,
			PostID:     post.ID,
			PostText:   post.Text,
			DetectedAt: time.Now().UTC(),
		}
		observability.RecordMatch()
		observability.RecordPairRemoved("matched")
		s.log.WithFields(logrus.Fields{
			"handle":  event.Handle,
			"keyword": event.Keyword,
			"post_id": event.PostID,
		}).Info("match detected")

		if err := s.events.Insert(ctx, event); err != nil {
			s.log.WithError(err).WithField("event_id", event.EventID).Error("persist match event")
		}

		if tp.resolved.Mint == "" {
			// Alert-only pair, nothing to buy.
			continue
		}

		s.pipelines.Add(1)
		// Detach from the loop context: a shutdown must not abort a trade
		// already in flight.
		pctx := context.WithoutCancel(ctx)
		go func(event *domain.MatchEvent) {
			defer s.pipelines.Done()
			s.execute(pctx, event)
		}(event)
	}
}

// execute runs the trade pipeline for one event and records the outcome.
func (s *Scheduler) execute(ctx context.Context, event *domain.MatchEvent) {
	result := s.executor.Execute(ctx, event)
	if result == nil {
		return
	}

	if err := s.results.Insert(ctx, result); err != nil {
		s.log.WithError(err).WithField("result_id", result.ResultID).Error("persist trade result")
	}

	if result.Succeeded() {
		observability.RecordTrade("filled")
		s.log.WithFields(logrus.Fields{
			"mint":      result.Mint,
			"signature": result.Signature,
		}).Info("purchase submitted")
		if s.notifier != nil {
			s.notifier.Send(fmt.Sprintf("Bought %s (%.6f SOL) on @%s post %s, tx %s",
				result.Mint, result.AmountSOL, event.Handle, event.PostID, result.Signature))
		}
		return
	}

	// A failed purchase is not re-attempted: after an ambiguous partial
	// failure the transaction may still land, and a retry risks double spend.
	observability.RecordTrade("failed")
	s.log.WithFields(logrus.Fields{
		"mint":   result.Mint,
		"stage":  result.Stage,
		"reason": result.FailureReason,
	}).Warn("purchase failed")
}

// remove deletes a tracked pair from the set.
func (s *Scheduler) remove(target *trackedPair) {
	s.mu.Lock()
	kept := s.pairs[:0]
	for _, tp := range s.pairs {
		if tp != target {
			kept = append(kept, tp)
		}
	}
	s.pairs = kept
	active := len(s.pairs)
	s.mu.Unlock()
	observability.UpdateActivePairs(active)
}
