package longpoll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	err    error
	sent   []string
	during func()
}

func (p *stubPublisher) Publish(_ context.Context, text string) error {
	p.sent = append(p.sent, text)
	if p.during != nil {
		p.during()
	}
	return p.err
}

func TestDraft_FailedPublishKeepsText(t *testing.T) {
	var d Draft
	d.Set("x")
	p := &stubPublisher{err: NewError(ErrorTransport, "down")}

	err := d.Submit(context.Background(), p)
	require.True(t, IsTransportError(err))
	require.Equal(t, "x", d.Text())

	p.err = nil
	require.NoError(t, d.Submit(context.Background(), p))
	require.Empty(t, d.Text())
	require.Equal(t, []string{"x", "x"}, p.sent)
}

func TestDraft_EmptyIsNoop(t *testing.T) {
	var d Draft
	p := &stubPublisher{}
	require.NoError(t, d.Submit(context.Background(), p))
	require.Empty(t, p.sent)
}

func TestDraft_EditDuringSendIsKept(t *testing.T) {
	var d Draft
	d.Set("first")
	p := &stubPublisher{during: func() { d.Set("second") }}

	require.NoError(t, d.Submit(context.Background(), p))
	require.Equal(t, "second", d.Text())
}
