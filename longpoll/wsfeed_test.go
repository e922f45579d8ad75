package longpoll

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/longpoll-sdk-go/internal/feedserver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newFeedServer(t *testing.T, hold time.Duration) (*feedserver.Server, *httptest.Server) {
	t.Helper()
	srv := feedserver.New(feedserver.Options{
		HoldTimeout: hold,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestWebSocketFeed_PublishAndFetch(t *testing.T) {
	_, ts := newFeedServer(t, time.Second)
	feed := NewWebSocketFeed("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", time.Second, time.Second)
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// The first publish dials; the server echoes to every stream including ours.
	require.NoError(t, feed.Publish(ctx, Message{ID: 11, Text: "echo"}))

	m, err := feed.FetchNext(ctx)
	require.NoError(t, err)
	require.Equal(t, Message{ID: 11, Text: "echo"}, m)
}

func TestWebSocketFeed_CloseUnblocksFetch(t *testing.T) {
	srv, ts := newFeedServer(t, time.Second)
	feed := NewWebSocketFeed("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", time.Second, time.Second)

	errc := make(chan error, 1)
	go func() {
		_, err := feed.FetchNext(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return srv.Hub().Streams() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, feed.Close())
	select {
	case err := <-errc:
		require.True(t, IsTransportError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("FetchNext still blocked after Close")
	}

	_, err := feed.FetchNext(context.Background())
	require.ErrorIs(t, err, NewError(ErrorTransport, ""))
}

func TestWebSocketFeed_DialFailure(t *testing.T) {
	_, ts := newFeedServer(t, time.Second)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/nope"

	_, err := NewWebSocketFeed(url, time.Second, time.Second).FetchNext(context.Background())
	require.True(t, IsTransportError(err))
}

func TestWebSocketFeed_ResetRedials(t *testing.T) {
	srv, ts := newFeedServer(t, time.Second)
	feed := NewWebSocketFeed("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", time.Second, time.Second)
	defer feed.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := feed.FetchNext(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return srv.Hub().Streams() == 1 }, 2*time.Second, 5*time.Millisecond)

	feed.Reset()
	select {
	case err := <-errc:
		require.True(t, IsTransportError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("FetchNext still blocked after Reset")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, feed.Publish(ctx, Message{ID: 4, Text: "again"}))
	m, err := feed.FetchNext(ctx)
	require.NoError(t, err)
	require.Equal(t, Message{ID: 4, Text: "again"}, m)
}
