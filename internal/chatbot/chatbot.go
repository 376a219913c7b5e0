package chatbot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"UnlimitedChat/internal/api"
	"UnlimitedChat/internal/config"
	"UnlimitedChat/internal/locale"
	"UnlimitedChat/internal/session"
	"UnlimitedChat/internal/telemetry"
	"UnlimitedChat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ChatBot represents the main application
type ChatBot struct {
	config  config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	client  *api.Client
	session *session.Session

	closers []func()
}

// NewChatBot creates a new ChatBot instance. Every collaborator is built
// here and handed down explicitly.
func NewChatBot(cfg config.Config) (*ChatBot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cb := &ChatBot{config: cfg, logger: logger}
	cb.closers = append(cb.closers, func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	})

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir, cfg.Telemetry)
	if err != nil {
		cb.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	cb.tracer, cb.meter = tracer, meter
	cb.closers = append(cb.closers, cleanup)

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	client, err := api.NewClient(cfg.BaseURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
		api.WithTracer(tracer),
		api.WithMeter(meter),
	)
	if err != nil {
		cb.Close()
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	cb.client = client

	catalog, err := locale.Lookup(cfg.Locale)
	if err != nil {
		cb.Close()
		return nil, err
	}

	cb.session = session.New(client,
		session.WithLogger(logger),
		session.WithTracer(tracer),
		session.WithMeter(meter),
		session.WithCatalog(catalog),
		session.WithTheme(resolveTheme(cfg.Theme)),
	)

	logger.Info("chatbot initialized",
		"backend", client.BaseURL(),
		"theme", cfg.Theme,
		"locale", catalog.Tag,
		"plain", cfg.Plain,
	)
	return cb, nil
}

// resolveTheme maps the configured theme onto a session theme; "auto"
// follows the terminal background.
func resolveTheme(name string) session.Theme {
	if name == config.ThemeAuto {
		if lipgloss.HasDarkBackground() {
			return session.ThemeDark
		}
		return session.ThemeLight
	}
	theme, err := session.ParseTheme(name)
	if err != nil {
		return session.ThemeDark
	}
	return theme
}

// Session returns the chat session the front ends drive
func (cb *ChatBot) Session() *session.Session {
	return cb.session
}

// Run starts the selected front end and blocks until the user quits.
func (cb *ChatBot) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer cb.Close()

	if cb.config.Plain {
		return NewConsole(cb.session, out, cb.logger).Run(ctx, in)
	}
	return cb.runTUI(ctx, in, out)
}

func (cb *ChatBot) runTUI(ctx context.Context, in io.Reader, out io.Writer) error {
	model := ui.New(ctx, cb.session, cb.logger)
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			cb.logger.Info("interrupted", "reason", ctx.Err())
			return nil
		}
		return fmt.Errorf("error running program: %w", err)
	}
	cb.logger.Info("chatbot exited")
	return nil
}

// Close releases the logger and telemetry exporters. It is safe to call
// more than once.
func (cb *ChatBot) Close() {
	for i := len(cb.closers) - 1; i >= 0; i-- {
		cb.closers[i]()
	}
	cb.closers = nil
}
