// Package feedserver is a reference long-poll message feed used by the CLI,
// the examples and integration tests.
package feedserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// Options configures the feed server.
type Options struct {
	// HoldTimeout is how long a poll is parked before the server answers 204.
	HoldTimeout time.Duration
	Logger      *slog.Logger
	// Metrics exposes the default Prometheus registry at /metrics.
	Metrics bool
}

// Server serves GET /get-messages, POST /new-messages and GET /ws.
type Server struct {
	hub    *Hub
	opts   Options
	router *gin.Engine
}

// New builds a server with its routes registered.
func New(opts Options) *Server {
	if opts.HoldTimeout <= 0 {
		opts.HoldTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), allowCORS())

	s := &Server{hub: NewHub(), opts: opts, router: router}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the server's fan-out hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) registerRoutes() {
	s.router.GET(rest.DefaultFetchPath, s.handleGetMessages)
	s.router.POST(rest.DefaultPublishPath, s.handleNewMessage)
	s.router.GET("/ws", s.handleWebSocket)
	if s.opts.Metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) handleGetMessages(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.HoldTimeout)
	defer cancel()

	c.Header("Cache-Control", "no-store")
	rec, ok := s.hub.Wait(ctx)
	if !ok {
		if c.Request.Context().Err() != nil {
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleNewMessage(c *gin.Context) {
	var rec rest.MessageRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, rest.ErrorResponse{Error: "invalid message: " + err.Error()})
		return
	}
	if rec.Message == "" {
		c.JSON(http.StatusBadRequest, rest.ErrorResponse{Error: "message is required"})
		return
	}
	s.hub.Publish(rec)
	s.opts.Logger.Debug("message published", "id", rec.ID)
	c.Status(http.StatusOK)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := websocket.Accept(upgradeWriter(c), c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.opts.Logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer ws.CloseNow()

	records, unsubscribe := s.hub.Stream()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Inbound frames are publishes.
	go func() {
		defer cancel()
		for {
			var rec rest.MessageRecord
			if err := wsjson.Read(ctx, ws, &rec); err != nil {
				if !isExpectedDisconnect(ctx, err) {
					s.opts.Logger.Warn("websocket read failed", "error", err)
				}
				return
			}
			if rec.Message != "" {
				s.hub.Publish(rec)
			}
		}
	}()

	for {
		select {
		case rec := <-records:
			if err := wsjson.Write(ctx, ws, rec); err != nil {
				return
			}
		case <-ctx.Done():
			_ = ws.Close(websocket.StatusNormalClosure, "bye")
			return
		}
	}
}

// upgradeWriter returns the writer underneath gin's. Accept writes the 101
// status before hijacking, and gin's writer refuses to hijack once written.
func upgradeWriter(c *gin.Context) http.ResponseWriter {
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return c.Writer
}

// Start runs the server on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, opts Options) error {
	s := New(opts)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.opts.Logger.Info("feed server listening", "addr", addr, "hold", s.opts.HoldTimeout.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("feedserver: %w", err)
	}
	return nil
}

func allowCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Cache-Control, Pragma, Expires")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
