package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "lpchat dev")
	require.Contains(t, buf.String(), "commit: none")
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	for _, sub := range []string{"subscribe", "send", "chat", "serve", "version"} {
		require.Contains(t, out, sub)
	}
}

func TestSendRequiresText(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"send"})

	require.Equal(t, 1, execute(cmd))
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.test\ntransport: websocket\n"), 0o600))
	t.Setenv("LONGPOLL_BASE_URL", "http://env.test")

	opts := &globalOptions{configPath: path}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://env.test", cfg.BaseURL)
	require.Equal(t, longpoll.TransportWebSocket, cfg.Transport)

	opts.baseURL = "http://flag.test"
	opts.transport = longpoll.TransportHTTP
	cfg, err = opts.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://flag.test", cfg.BaseURL)
	require.Equal(t, longpoll.TransportHTTP, cfg.Transport)
}

func TestLoadConfig_InvalidTransportFlag(t *testing.T) {
	opts := &globalOptions{transport: "pigeon"}
	_, err := opts.loadConfig()
	require.Error(t, err)
}

// flakyPublisher fails the first call and records the rest.
type flakyPublisher struct {
	mu    sync.Mutex
	calls int
	sent  []string
}

func (p *flakyPublisher) Publish(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == 1 {
		return longpoll.NewError(longpoll.ErrorTransport, "down")
	}
	p.sent = append(p.sent, text)
	return nil
}

func TestChatLoop_RetriesKeptDraft(t *testing.T) {
	pub := &flakyPublisher{}
	out := new(bytes.Buffer)
	in := strings.NewReader("hello\n\nworld\n")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, chatLoop(ctx, in, newMessagePrinter(out), pub, false))

	require.Equal(t, []string{"hello", "world"}, pub.sent)
	require.Contains(t, out.String(), "send failed, draft kept")
}

func TestMessagePrinter(t *testing.T) {
	out := new(bytes.Buffer)
	p := newMessagePrinter(out)
	p.now = func() time.Time { return time.Date(2024, 1, 1, 12, 30, 0, 0, time.Local) }

	p.print(longpoll.Message{ID: 1795128316534824960, Text: "hi"})
	require.Equal(t, "[12:30:00] #1795128316534824960 hi\n", out.String())
}
