package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *globalOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Publish one message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			text := strings.Join(args, " ")
			if err := client.Publish(ctx, text); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "publish timeout")
	return cmd
}
