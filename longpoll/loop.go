package longpoll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Subscription is one long-poll loop bound to a Feed and a Store.
//
// The loop runs in its own goroutine and issues at most one fetch at a time.
// A successful fetch is merged into the store and followed by the next fetch
// without delay; a failed fetch is retried after a fixed delay, forever,
// until the subscription is stopped. A Subscription is single use: once
// stopped it cannot be started again.
type Subscription struct {
	feed       Feed
	store      *Store
	retryDelay time.Duration
	after      func(time.Duration) <-chan time.Time
	logger     Logger
	metrics    MetricsCollector
	onState    func(StateEvent)
	onError    func(error)
	onMerge    func(Message)

	// gate orders merges against Stop: once Stop returns, no merge can
	// touch the store or reach onMerge.
	gate   sync.Mutex
	active atomic.Bool
	// inMerge is set while onMerge runs under gate, so Stop called from
	// onMerge does not wait for itself.
	inMerge atomic.Bool

	mu       sync.Mutex
	state    LoopState
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	unwatch  func() bool
}

// SubscriptionOption configures a Subscription.
type SubscriptionOption func(*Subscription)

// WithRetryDelay sets the wait after a failed fetch. Non-positive values are ignored.
func WithRetryDelay(d time.Duration) SubscriptionOption {
	return func(s *Subscription) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithLogger sets the logger for fetch failures and lifecycle events.
func WithLogger(l Logger) SubscriptionOption {
	return func(s *Subscription) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) SubscriptionOption {
	return func(s *Subscription) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStateHook registers a callback for every state transition.
func WithStateHook(fn func(StateEvent)) SubscriptionOption {
	return func(s *Subscription) { s.onState = fn }
}

// WithErrorHook registers a callback for fetch failures. Failures never stop
// the loop; the hook is for observation only.
func WithErrorHook(fn func(error)) SubscriptionOption {
	return func(s *Subscription) { s.onError = fn }
}

// WithTimer replaces time.After for the retry wait.
func WithTimer(after func(time.Duration) <-chan time.Time) SubscriptionOption {
	return func(s *Subscription) {
		if after != nil {
			s.after = after
		}
	}
}

// NewSubscription creates an idle subscription.
func NewSubscription(feed Feed, store *Store, opts ...SubscriptionOption) *Subscription {
	s := &Subscription{
		feed:       feed,
		store:      store,
		retryDelay: 500 * time.Millisecond,
		after:      time.After,
		logger:     noopLogger{},
		metrics:    NopMetrics{},
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop. onMerge, if not nil, is called from the loop
// goroutine after each message that changed the store.
//
// ctx is the caller's cancellation token: cancelling it has the same effect
// as Stop. In-flight fetches are not aborted by either; their results are
// discarded.
func (s *Subscription) Start(ctx context.Context, onMerge func(Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return NewError(ErrorAlreadyStarted, "subscription already started")
	}
	if s.isStopped() {
		return NewError(ErrorStopped, "subscription stopped")
	}
	if err := ctx.Err(); err != nil {
		return WrapError(ErrorStopped, "context done before start", err)
	}

	s.started = true
	s.onMerge = onMerge
	s.active.Store(true)
	s.unwatch = context.AfterFunc(ctx, s.Stop)

	go s.run(context.WithoutCancel(ctx))
	return nil
}

// Stop marks the subscription inactive. It returns once no merge is in
// progress; after that the store is never mutated and onMerge is never
// called by this subscription. Stop is idempotent and safe to call from
// onMerge or any hook. Called while onMerge is running, it returns without
// waiting for onMerge to finish.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.active.Store(false)
		close(s.stopCh)
		started := s.started
		s.mu.Unlock()

		if !s.inMerge.Load() {
			s.gate.Lock()
			//nolint:staticcheck // empty critical section waits out a running merge
			s.gate.Unlock()
		}

		if !started {
			s.setState(StateStopped, nil)
			close(s.done)
		}
	})
}

// Done is closed when the loop goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Active reports whether the subscription still wants updates.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// State returns the current loop state.
func (s *Subscription) State() LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store returns the store this subscription merges into.
func (s *Subscription) Store() *Store {
	return s.store
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateStopped, nil)
	defer func() {
		if s.unwatch != nil {
			s.unwatch()
		}
	}()

	s.logger.Debug("subscription started", map[string]any{"retry_delay": s.retryDelay.String()})

	for s.Active() {
		s.setState(StatePolling, nil)
		start := time.Now()
		msg, err := s.feed.FetchNext(ctx)
		elapsed := time.Since(start).Seconds()

		switch {
		case err == nil:
			s.metrics.RecordPoll(PollMessage, elapsed)
			if !s.merge(msg) {
				s.logger.Debug("discarding message fetched after stop", map[string]any{"id": msg.ID})
				return
			}

		case errors.Is(err, ErrNoMessage):
			s.metrics.RecordPoll(PollEmpty, elapsed)

		default:
			s.metrics.RecordPoll(PollError, elapsed)
			if !s.Active() {
				return
			}
			s.logger.Warn("fetch failed, retrying", map[string]any{
				"error": err.Error(),
				"delay": s.retryDelay.String(),
			})
			if s.onError != nil {
				s.onError(err)
			}
			if !s.backoff(err) {
				return
			}
		}
	}
}

// merge applies msg and notifies onMerge, both under the stop gate. Returns
// false if the subscription was stopped and msg was discarded.
func (s *Subscription) merge(msg Message) bool {
	s.setState(StateMerging, nil)

	s.gate.Lock()
	defer s.gate.Unlock()
	if !s.active.Load() {
		return false
	}
	added := s.store.Merge(msg)
	s.metrics.RecordMerge(added)
	s.metrics.SetStoreSize(s.store.Len())
	if added && s.onMerge != nil {
		s.inMerge.Store(true)
		defer s.inMerge.Store(false)
		s.onMerge(msg)
	}
	return true
}

// backoff waits out the retry delay. Returns false if stopped meanwhile.
func (s *Subscription) backoff(cause error) bool {
	s.setState(StateBackoff, cause)
	s.metrics.RecordBackoff(s.retryDelay.Seconds())
	select {
	case <-s.after(s.retryDelay):
		return s.Active()
	case <-s.stopCh:
		return false
	}
}

func (s *Subscription) isStopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Subscription) setState(next LoopState, cause error) {
	s.mu.Lock()
	prev := s.state
	if prev == next || prev == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(StateEvent{OldState: prev, NewState: next, Error: cause})
	}
}
