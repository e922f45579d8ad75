package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
	"github.com/vovakirdan/longpoll-sdk-go/metrics"
)

func newSubscribeCmd(opts *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Print messages as they arrive",
		Long:  "Runs the subscription loop and prints every new message until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				client.SetMetrics(metrics.NewPrometheus(reg, ""))
				go serveMetrics(ctx, metricsAddr, reg, opts.logger(cmd.ErrOrStderr()))
			}

			printer := newMessagePrinter(cmd.OutOrStdout())
			client.OnMessage(printer.print)
			if err := client.Subscribe(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
			case <-client.Done():
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// messagePrinter serializes writes from the loop goroutine. Each line is
// stamped with the local arrival time.
type messagePrinter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func newMessagePrinter(w io.Writer) *messagePrinter {
	return &messagePrinter{w: w, now: time.Now}
}

func (p *messagePrinter) print(m longpoll.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[%s] #%d %s\n", p.now().Format(time.TimeOnly), m.ID, m.Text)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}
