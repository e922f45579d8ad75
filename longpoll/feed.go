package longpoll

import (
	"context"
	"errors"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// Feed is the remote message feed: one blocking fetch of the next message
// and one append. Implementations do not retry.
type Feed interface {
	// FetchNext blocks until the next message is available. It returns
	// ErrNoMessage when the poll ended empty and a transport *Error on failure.
	FetchNext(ctx context.Context) (Message, error)

	// Publish appends m to the feed. m.ID is assigned by the caller.
	Publish(ctx context.Context, m Message) error
}

// HTTPFeed is a Feed over the long-poll REST endpoints.
type HTTPFeed struct {
	rest *rest.Client
}

var _ Feed = (*HTTPFeed)(nil)

// NewHTTPFeed wraps a REST client.
func NewHTTPFeed(c *rest.Client) *HTTPFeed {
	return &HTTPFeed{rest: c}
}

// FetchNext implements Feed.
func (f *HTTPFeed) FetchNext(ctx context.Context) (Message, error) {
	rec, err := f.rest.GetMessage(ctx)
	if errors.Is(err, rest.ErrNoContent) {
		return Message{}, ErrNoMessage
	}
	if err != nil {
		return Message{}, transportError("fetch", err)
	}
	return messageFromRecord(*rec), nil
}

// Publish implements Feed.
func (f *HTTPFeed) Publish(ctx context.Context, m Message) error {
	if err := f.rest.NewMessage(ctx, m.record()); err != nil {
		return transportError("publish", err)
	}
	return nil
}
