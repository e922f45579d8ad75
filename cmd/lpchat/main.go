package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	baseURL    string
	transport  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "lpchat",
		Short:        "Long-poll message feed client",
		Long:         "lpchat subscribes to a long-poll message feed, publishes to it, and can run a local feed server.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "url", "", "feed base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.transport, "transport", "", "feed transport: http or websocket")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSubscribeCmd(opts))
	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lpchat %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// loadConfig resolves the client config: file (or defaults), then
// LONGPOLL_* environment, then flags.
func (o *globalOptions) loadConfig() (*longpoll.Config, error) {
	var cfg *longpoll.Config
	if o.configPath != "" {
		loaded, err := longpoll.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		d := longpoll.DefaultConfig()
		cfg = &d
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.transport != "" {
		cfg.Transport = o.transport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newClient builds an SDK client logging to w.
func (o *globalOptions) newClient(w io.Writer) (*longpoll.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := longpoll.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	client.SetLogger(longpoll.NewSlogLogger(o.logger(w)))
	return client, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	_ = godotenv.Load()
	os.Exit(execute(newRootCmd()))
}
