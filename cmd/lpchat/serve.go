package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/longpoll-sdk-go/internal/feedserver"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr        string
		hold        time.Duration
		withMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local feed server",
		Long:  "Serves GET /get-messages, POST /new-messages and GET /ws for local development.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return feedserver.Start(ctx, addr, feedserver.Options{
				HoldTimeout: hold,
				Logger:      opts.logger(cmd.ErrOrStderr()),
				Metrics:     withMetrics,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	cmd.Flags().DurationVar(&hold, "hold", 30*time.Second, "how long a poll is held before answering 204")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "expose Prometheus metrics at /metrics")
	return cmd
}
