package feedserver

import (
	"context"
	"sync"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// streamBuffer is how many records a websocket subscriber may lag behind
// before records are dropped for it.
const streamBuffer = 64

// Hub fans published records out to parked long-poll requests and open
// websocket streams. A long-poll request receives the first record published
// after it parked; nothing is retained for clients that are not waiting.
type Hub struct {
	mu      sync.Mutex
	waiters map[chan rest.MessageRecord]struct{}
	streams map[chan rest.MessageRecord]struct{}
	dropped uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		waiters: make(map[chan rest.MessageRecord]struct{}),
		streams: make(map[chan rest.MessageRecord]struct{}),
	}
}

// Publish delivers rec to every parked poller and every stream.
func (h *Hub) Publish(rec rest.MessageRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.waiters {
		ch <- rec // buffered 1, each waiter is removed after one delivery
		delete(h.waiters, ch)
	}
	for ch := range h.streams {
		select {
		case ch <- rec:
		default:
			h.dropped++
		}
	}
}

// Wait parks until the next Publish or until ctx is done.
func (h *Hub) Wait(ctx context.Context) (rest.MessageRecord, bool) {
	ch := make(chan rest.MessageRecord, 1)
	h.mu.Lock()
	h.waiters[ch] = struct{}{}
	h.mu.Unlock()

	select {
	case rec := <-ch:
		return rec, true
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.waiters, ch)
		h.mu.Unlock()
		// Publish may have delivered between ctx firing and the delete.
		select {
		case rec := <-ch:
			return rec, true
		default:
			return rest.MessageRecord{}, false
		}
	}
}

// Stream registers a websocket subscriber. The returned func unregisters it.
func (h *Hub) Stream() (<-chan rest.MessageRecord, func()) {
	ch := make(chan rest.MessageRecord, streamBuffer)
	h.mu.Lock()
	h.streams[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.streams, ch)
			h.mu.Unlock()
		})
	}
}

// Waiting returns the number of parked long-poll requests.
func (h *Hub) Waiting() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters)
}

// Dropped returns how many stream deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Streams returns the number of connected websocket subscribers.
func (h *Hub) Streams() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}
