package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"UnlimitedChat/internal/chatbot"
	"UnlimitedChat/internal/config"
)

// flagValues mirrors config.Config; only flags the user set override the
// environment.
type flagValues struct {
	url       string
	timeout   time.Duration
	theme     string
	locale    string
	logDir    string
	debug     bool
	plain     bool
	telemetry bool
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "unlimitedchat",
		Short: "Terminal client for the Unlimited Agent chat backend",
		Long: `unlimitedchat talks to a running chat backend over its HTTP API.

It restores the server-side conversation on start, shows whether a model is
loaded, and sends one message at a time. Configuration comes from the
environment (and a .env file) and can be overridden with flags.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			applyFlags(cmd, fv, &cfg)
			if !cmd.Flags().Changed("plain") && !isatty.IsTerminal(os.Stdin.Fd()) {
				cfg.Plain = true
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fv.url, "url", config.DefaultBaseURL, "Chat backend URL (or set UNLIMITED_CHAT_URL)")
	flags.DurationVar(&fv.timeout, "timeout", config.DefaultTimeout, "Request timeout")
	flags.StringVar(&fv.theme, "theme", config.ThemeDark, "Color theme (light|dark|auto)")
	flags.StringVar(&fv.locale, "locale", "", "UI language (zh|en)")
	flags.StringVar(&fv.logDir, "log-dir", config.DefaultLogDir, "Directory for log, trace and metric files")
	flags.BoolVar(&fv.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&fv.plain, "plain", false, "Use the line-oriented console instead of the full-screen UI")
	flags.BoolVar(&fv.telemetry, "telemetry", false, "Export traces and metrics to the log directory")
	return cmd
}

func applyFlags(cmd *cobra.Command, fv flagValues, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = fv.url
	}
	if flags.Changed("timeout") {
		cfg.Timeout = fv.timeout
	}
	if flags.Changed("theme") {
		cfg.Theme = fv.theme
	}
	if flags.Changed("locale") {
		cfg.Locale = fv.locale
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = fv.logDir
	}
	if flags.Changed("debug") {
		cfg.Debug = fv.debug
	}
	if flags.Changed("plain") {
		cfg.Plain = fv.plain
	}
	if flags.Changed("telemetry") {
		cfg.Telemetry = fv.telemetry
	}
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	bot, err := chatbot.NewChatBot(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chatbot: %w", err)
	}
	return bot.Run(ctx, in, out)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
