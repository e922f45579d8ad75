package longpoll

import (
	"context"
	"sync"
	"time"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/internal"
)

// WebSocketFeed is a Feed that reads one message record per frame from a
// persistent websocket. The connection is dialed lazily and dropped after any
// error, so the next FetchNext (after the loop's backoff) redials.
type WebSocketFeed struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	mu     sync.Mutex
	conn   *internal.Conn
	closed bool
}

var _ Feed = (*WebSocketFeed)(nil)

// NewWebSocketFeed creates a feed for url (ws:// or wss://).
func NewWebSocketFeed(url string, handshakeTimeout, writeTimeout time.Duration) *WebSocketFeed {
	return &WebSocketFeed{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		writeTimeout:     writeTimeout,
	}
}

// FetchNext implements Feed.
func (f *WebSocketFeed) FetchNext(ctx context.Context) (Message, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return Message{}, err
	}
	rec, err := conn.ReadRecord(ctx)
	if err != nil {
		f.drop(conn)
		return Message{}, transportError("fetch", err)
	}
	return messageFromRecord(rec), nil
}

// Publish implements Feed.
func (f *WebSocketFeed) Publish(ctx context.Context, m Message) error {
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	if err := conn.WriteRecord(ctx, m.record()); err != nil {
		f.drop(conn)
		return transportError("publish", err)
	}
	return nil
}

// Close shuts the connection down and unblocks a pending FetchNext.
func (f *WebSocketFeed) Close() error {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.closed = true
	f.mu.Unlock()
	if conn == nil {
		return nil
	}
	// A pending read holds the connection open, so skip the handshake.
	return conn.Abort()
}

// Reset drops the current connection without closing the feed. A pending
// FetchNext fails and the next call dials again.
func (f *WebSocketFeed) Reset() {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		_ = conn.Abort()
	}
}

func (f *WebSocketFeed) connect(ctx context.Context) (*internal.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, NewError(ErrorTransport, "websocket feed closed")
	}
	if f.conn != nil {
		return f.conn, nil
	}
	// Reads are not timed: a quiet feed is not a failure.
	conn, err := internal.Dial(ctx, f.url, f.handshakeTimeout, 0, f.writeTimeout)
	if err != nil {
		return nil, transportError("dial", err)
	}
	f.conn = conn
	return conn, nil
}

func (f *WebSocketFeed) drop(conn *internal.Conn) {
	f.mu.Lock()
	if f.conn == conn {
		f.conn = nil
	}
	f.mu.Unlock()
	_ = conn.Abort()
}
