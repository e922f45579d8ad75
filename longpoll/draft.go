package longpoll

import (
	"context"
	"sync"
)

// Publisher sends text to the feed. *Client implements it.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// Draft holds text the user has typed but not sent yet.
type Draft struct {
	mu   sync.Mutex
	text string
}

// Set replaces the draft text.
func (d *Draft) Set(text string) {
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()
}

// Text returns the current draft text.
func (d *Draft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Submit publishes the draft. An empty draft is a no-op. On failure the text
// is kept so the user can retry; on success it is cleared unless it was
// edited while the publish was in flight.
func (d *Draft) Submit(ctx context.Context, p Publisher) error {
	text := d.Text()
	if text == "" {
		return nil
	}
	if err := p.Publish(ctx, text); err != nil {
		return err
	}

	d.mu.Lock()
	if d.text == text {
		d.text = ""
	}
	d.mu.Unlock()
	return nil
}
