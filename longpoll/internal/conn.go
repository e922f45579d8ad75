// Package internal holds the websocket plumbing behind WebSocketFeed.
package internal

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// Conn is a stream of JSON message records over one websocket.
// One reader and one writer may use it at the same time.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Dial connects to url. handshakeTimeout bounds the upgrade when positive.
func Dial(ctx context.Context, url string, handshakeTimeout, readTimeout, writeTimeout time.Duration) (*Conn, error) {
	ctx, cancel := withTimeout(ctx, handshakeTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}, nil
}

// ReadRecord blocks until the next record frame arrives.
func (c *Conn) ReadRecord(ctx context.Context) (rest.MessageRecord, error) {
	ctx, cancel := withTimeout(ctx, c.readTimeout)
	defer cancel()

	var rec rest.MessageRecord
	err := wsjson.Read(ctx, c.ws, &rec)
	return rec, err
}

// WriteRecord sends one record frame.
func (c *Conn) WriteRecord(ctx context.Context, rec rest.MessageRecord) error {
	ctx, cancel := withTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, rec)
}

// Abort drops the connection without a handshake.
func (c *Conn) Abort() error {
	return c.ws.CloseNow()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
