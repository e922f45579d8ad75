package longpoll

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// Client provides the high-level SDK: one subscription loop feeding a
// message store, plus publishing.
type Client struct {
	cfg     Config
	logger  Logger
	metrics MetricsCollector
	ids     IDSource
	limiter *rate.Limiter
	feed    Feed

	// REST is the underlying HTTP client. It is used by the HTTP transport
	// and may be used directly.
	REST *rest.Client

	dispatcher Dispatcher

	mu    sync.Mutex
	sub   *Subscription
	store *Store
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	restClient := rest.NewClient(cfg.BaseURL)
	restClient.SetPaths(cfg.FetchPath, cfg.PublishPath)
	restClient.SetTimeout(cfg.RequestTimeout)

	c := &Client{
		cfg:     *cfg,
		logger:  noopLogger{},
		metrics: NopMetrics{},
		REST:    restClient,
		store:   NewStore(),
	}

	switch cfg.IDScheme {
	case IDSchemeSnowflake:
		ids, err := NewSnowflakeIDs(cfg.NodeID)
		if err != nil {
			return nil, err
		}
		c.ids = ids
	default:
		c.ids = NewClockIDs()
	}

	if cfg.PublishRate > 0 {
		burst := cfg.PublishBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), burst)
	}

	if cfg.Transport == TransportWebSocket {
		c.feed = NewWebSocketFeed(cfg.webSocketURL(), cfg.HandshakeTimeout, cfg.WriteTimeout)
	} else {
		c.feed = NewHTTPFeed(restClient)
	}
	return c, nil
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// SetMetrics overrides the metrics collector (optional).
func (c *Client) SetMetrics(m MetricsCollector) {
	if m == nil {
		return
	}
	c.metrics = m
}

// SetIDSource overrides how publish ids are assigned (optional).
func (c *Client) SetIDSource(ids IDSource) {
	if ids == nil {
		return
	}
	c.ids = ids
}

// SetFeed replaces the transport (optional). Call before Subscribe.
func (c *Client) SetFeed(f Feed) {
	if f == nil {
		return
	}
	c.feed = f
}

// OnMessage registers callback for messages newly added to the store.
func (c *Client) OnMessage(fn func(Message)) { c.dispatcher.SetOnMessage(fn) }

// OnStateChanged registers callback for loop state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) { c.dispatcher.SetOnStateChanged(fn) }

// OnError registers callback for fetch failures. They are retried
// automatically; the callback is informational.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// Subscribe starts a new subscription loop with an empty store. Cancel ctx
// or call Unsubscribe to stop it.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil && c.sub.Active() {
		return NewError(ErrorAlreadyStarted, "already subscribed")
	}
	if c.sub != nil {
		c.retire(c.sub)
	}

	store := NewStore()
	sub := NewSubscription(c.feed, store,
		WithRetryDelay(c.cfg.RetryDelay),
		WithLogger(c.logger),
		WithMetrics(c.metrics),
		WithStateHook(c.dispatcher.DispatchState),
		WithErrorHook(c.dispatcher.DispatchError),
	)
	if err := sub.Start(ctx, c.dispatcher.DispatchMessage); err != nil {
		return err
	}
	c.metrics.SetStoreSize(0)
	c.store = store
	c.sub = sub
	c.logger.Info("subscribed", map[string]any{"transport": c.cfg.Transport, "base_url": c.cfg.BaseURL})
	return nil
}

// Unsubscribe stops the current subscription. The store keeps its contents
// and receives no further merges.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Stop()
	c.resetFeed()
	c.logger.Info("unsubscribed", nil)
}

// resetter is a Feed holding a connection shared by successive loops.
type resetter interface {
	Reset()
}

// resetFeed ends a stopped loop's pending read on a connection-holding feed,
// so the next loop starts on a fresh connection.
func (c *Client) resetFeed() {
	if r, ok := c.feed.(resetter); ok {
		r.Reset()
	}
}

// retireTimeout bounds how long Subscribe waits for a stopped loop to exit.
const retireTimeout = 2 * time.Second

// retire makes sure a stopped loop no longer holds the feed's connection
// before a new loop starts on it. Feeds without a shared connection need
// no wait.
func (c *Client) retire(sub *Subscription) {
	if _, ok := c.feed.(resetter); !ok {
		return
	}
	deadline := time.After(retireTimeout)
	for {
		select {
		case <-sub.Done():
			return
		default:
		}
		c.resetFeed()
		select {
		case <-sub.Done():
			return
		case <-deadline:
			c.logger.Warn("previous subscription still running", nil)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Done returns a channel closed when the current loop exits, or nil if
// Subscribe was never called.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	return c.sub.Done()
}

// Messages returns the current store contents, newest first.
func (c *Client) Messages() []Message {
	return c.Store().Snapshot()
}

// Store returns the store of the current (or last) subscription.
func (c *Client) Store() *Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// State returns the loop state of the current subscription.
func (c *Client) State() LoopState {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil {
		return StateIdle
	}
	return sub.State()
}

// Publish sends text as a new message with a fresh id. It does not touch the
// store: the message arrives through the subscription like any other. Errors
// are returned as-is and never retried.
func (c *Client) Publish(ctx context.Context, text string) error {
	if text == "" {
		return NewError(ErrorEmptyMessage, "message text is empty")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	msg := Message{ID: c.ids.NextID(), Text: text}
	start := time.Now()
	err := c.feed.Publish(ctx, msg)
	c.metrics.RecordPublish(err == nil, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("publish failed", map[string]any{"id": msg.ID, "error": err.Error()})
		return err
	}
	c.logger.Debug("published", map[string]any{"id": msg.ID})
	return nil
}

// Close stops the subscription and releases the transport.
func (c *Client) Close() error {
	c.Unsubscribe()
	if closer, ok := c.feed.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
