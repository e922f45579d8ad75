package longpoll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

func TestHTTPFeed_FetchNext(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, m Message, err error)
	}{
		{
			name: "message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"id":42,"message":"hello"}`))
			},
			check: func(t *testing.T, m Message, err error) {
				require.NoError(t, err)
				require.Equal(t, Message{ID: 42, Text: "hello"}, m)
			},
		},
		{
			name: "no content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			check: func(t *testing.T, _ Message, err error) {
				require.ErrorIs(t, err, ErrNoMessage)
				require.False(t, IsTransportError(err))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			check: func(t *testing.T, _ Message, err error) {
				require.True(t, IsStatusError(err))
				var e *Error
				require.ErrorAs(t, err, &e)
				require.Equal(t, http.StatusBadGateway, e.StatusCode)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"id":`))
			},
			check: func(t *testing.T, _ Message, err error) {
				require.ErrorIs(t, err, NewError(ErrorSerialization, ""))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			m, err := NewHTTPFeed(rest.NewClient(ts.URL)).FetchNext(context.Background())
			tt.check(t, m, err)
		})
	}
}

func TestHTTPFeed_FetchUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewHTTPFeed(rest.NewClient(url)).FetchNext(context.Background())
	require.True(t, IsTransportError(err))
	require.False(t, IsStatusError(err))
}

func TestHTTPFeed_Publish(t *testing.T) {
	got := make(chan rest.MessageRecord, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != rest.DefaultPublishPath {
			http.NotFound(w, r)
			return
		}
		var rec rest.MessageRecord
		_ = json.NewDecoder(r.Body).Decode(&rec)
		got <- rec
	}))
	defer ts.Close()

	feed := NewHTTPFeed(rest.NewClient(ts.URL))
	require.NoError(t, feed.Publish(context.Background(), Message{ID: 5, Text: "out"}))
	require.Equal(t, rest.MessageRecord{ID: 5, Message: "out"}, <-got)
}
