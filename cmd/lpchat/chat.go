package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: print arrivals, send each input line",
		Long: "Subscribes to the feed and publishes every line read from stdin. " +
			"A line that fails to send is kept and retried with the next empty line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := newMessagePrinter(cmd.OutOrStdout())
			client.OnMessage(out.print)
			if err := client.Subscribe(ctx); err != nil {
				return err
			}

			interactive := false
			if f, ok := cmd.InOrStdin().(*os.File); ok {
				interactive = term.IsTerminal(int(f.Fd()))
			}
			return chatLoop(ctx, cmd.InOrStdin(), out, client, interactive)
		},
	}
}

// chatLoop sends each input line through a Draft until input ends or ctx is
// done. An empty line resubmits a draft left over from a failed send.
func chatLoop(ctx context.Context, in io.Reader, out *messagePrinter, pub longpoll.Publisher, interactive bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var draft longpoll.Draft
	for {
		if interactive {
			out.prompt(draft.Text())
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line != "" {
				draft.Set(line)
			}
			if err := draft.Submit(ctx, pub); err != nil {
				out.printf("send failed, draft kept: %v\n", err)
			}
		}
	}
}

func (p *messagePrinter) prompt(draft string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if draft != "" {
		fmt.Fprintf(p.w, "(unsent: %s) ", draft)
	}
	fmt.Fprint(p.w, "> ")
}

func (p *messagePrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
