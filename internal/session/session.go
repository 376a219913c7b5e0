package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"UnlimitedChat/internal/api"
	"UnlimitedChat/internal/locale"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Backend is the remote chat service the session mediates. *api.Client
// implements it.
type Backend interface {
	Chat(ctx context.Context, message string) (*api.ChatResponse, error)
	History(ctx context.Context) (*api.HistoryResponse, error)
	Config(ctx context.Context) (*api.ConfigResponse, error)
	Clear(ctx context.Context) error
}

// Option configures a Session
type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) { s.tracer = tracer }
}

func WithMeter(meter metric.Meter) Option {
	return func(s *Session) { s.meter = meter }
}

func WithCatalog(c locale.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

func WithTheme(t Theme) Option {
	return func(s *Session) { s.state.Theme = t }
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session holds the conversation and display state of one client and runs
// the request/response cycle against the backend.
type Session struct {
	backend Backend
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	catalog locale.Catalog
	now     func() time.Time

	sends    metric.Int64Counter
	failures metric.Int64Counter

	mu        sync.Mutex
	state     State
	messages  []Message
	observers map[int]Observer
	nextObs   int
}

// New creates a session bound to backend. The session starts with the
// welcome panel visible, an empty log and the dark theme unless overridden.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		now:     time.Now,
		catalog: locale.MustLookup(locale.Default),
		state: State{
			Theme:          ThemeDark,
			WelcomeVisible: true,
			Status:         StatusUnknown,
		},
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer("session")
	}
	if s.meter == nil {
		s.meter = metricnoop.NewMeterProvider().Meter("session")
	}

	var err error
	s.sends, err = s.meter.Int64Counter("chat.sends", metric.WithDescription("Chat messages dispatched to the backend"))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", "chat.sends", "error", err)
		s.sends, _ = metricnoop.NewMeterProvider().Meter("session").Int64Counter("chat.sends")
	}
	s.failures, err = s.meter.Int64Counter("chat.send.failures", metric.WithDescription("Chat sends answered with an error"))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", "chat.send.failures", "error", err)
		s.failures, _ = metricnoop.NewMeterProvider().Meter("session").Int64Counter("chat.send.failures")
	}
	return s
}

// Catalog returns the strings the session renders errors with.
func (s *Session) Catalog() locale.Catalog {
	return s.catalog
}

// State returns a snapshot of the display state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Messages returns a copy of the message log in display order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Session) Subscribe(o Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Init loads history and checks the backend in parallel. Both are
// best-effort, so Init never fails.
func (s *Session) Init(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.init")
	defer span.End()

	var g errgroup.Group
	g.Go(func() error {
		s.LoadHistory(ctx)
		return nil
	})
	g.Go(func() error {
		s.CheckBackendStatus(ctx)
		return nil
	})
	_ = g.Wait()
}

// SendMessage sends text to the backend and appends the exchange to the log.
// It returns false without doing anything when text is blank or another
// send is still waiting for its reply. Failures are rendered as assistant
// messages and never returned.
func (s *Session) SendMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.state.IsSending {
		s.mu.Unlock()
		s.logger.Debug("send rejected, request in flight")
		return false
	}
	s.state.IsSending = true
	userMsg := s.appendLocked(RoleUser, text)
	s.state.Placeholder = &Placeholder{ID: uuid.NewString(), Since: s.now()}
	sendingEv := s.eventLocked(EventSendingChanged, nil)
	appendEv := s.eventLocked(EventMessageAppended, &userMsg)
	shownEv := s.eventLocked(EventPlaceholderShown, nil)
	s.mu.Unlock()
	s.emit(sendingEv, appendEv, shownEv)

	ctx, span := s.tracer.Start(ctx, "session.send_message",
		trace.WithAttributes(attribute.Int("message.length", len(text))))
	defer span.End()

	s.sends.Add(ctx, 1)
	start := s.now()
	resp, err := s.backend.Chat(ctx, text)

	var (
		content string
		counted bool
		kind    string
	)
	switch {
	case err != nil:
		kind = "network"
		content = s.catalog.NetworkError
		span.RecordError(err)
		s.logger.Error("failed to send message", "error", err)
	case !resp.Success:
		kind = "application"
		content = s.catalog.ErrorPrefix + resp.Error
		s.logger.Warn("backend rejected message", "error", resp.Error)
	case resp.AIMessage == nil:
		kind = "network"
		content = s.catalog.NetworkError
		s.logger.Error("backend reply without ai_message")
	default:
		content = resp.AIMessage.Content
		counted = true
	}
	if kind != "" {
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}

	s.mu.Lock()
	s.state.Placeholder = nil
	removedEv := s.eventLocked(EventPlaceholderRemoved, nil)
	reply := s.appendLocked(RoleAssistant, content)
	replyEv := s.eventLocked(EventMessageAppended, &reply)
	events := []Event{removedEv, replyEv}
	if counted {
		s.state.MessageCount += 2
		events = append(events, s.eventLocked(EventCounterChanged, nil))
	}
	s.state.IsSending = false
	events = append(events, s.eventLocked(EventSendingChanged, nil))
	s.mu.Unlock()
	s.emit(events...)

	s.logger.Info("message exchange complete",
		"ok", counted,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return true
}

// LoadHistory fetches the backend's stored conversation and appends it in
// order. Errors are logged only.
func (s *Session) LoadHistory(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.load_history")
	defer span.End()

	resp, err := s.backend.History(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to load history", "error", err)
		return
	}
	if len(resp.Messages) == 0 {
		return
	}

	now := s.now()
	var events []Event
	s.mu.Lock()
	loaded := 0
	for _, hm := range resp.Messages {
		role, err := ParseRole(hm.Role)
		if err != nil {
			s.logger.Warn("skipping history entry", "error", err)
			continue
		}
		msg := newMessage(role, hm.Content, parseHistoryTime(hm.Timestamp, now))
		if hm.ID != "" {
			msg.ID = hm.ID
		}
		s.messages = append(s.messages, msg)
		s.state.WelcomeVisible = false
		loaded++
		events = append(events, s.eventLocked(EventMessageAppended, &msg))
	}
	if loaded > 0 {
		s.state.MessageCount = loaded
		events = append(events, s.eventLocked(EventCounterChanged, nil))
	}
	s.mu.Unlock()
	s.emit(events...)

	s.logger.Info("history loaded", "message_count", loaded)
}

// CheckBackendStatus refreshes the online indicator from the backend config.
// A failed fetch counts as unreachable; an empty config is demo mode.
func (s *Session) CheckBackendStatus(ctx context.Context) Status {
	ctx, span := s.tracer.Start(ctx, "session.check_status")
	defer span.End()

	status := StatusDemo
	var modelName string
	cfg, err := s.backend.Config(ctx)
	if err != nil {
		status = StatusUnreachable
		span.RecordError(err)
		s.logger.Error("status check failed", "error", err)
	} else if cfg != nil {
		modelName = cfg.ModelName()
		if cfg.HasModel {
			status = StatusReady
		}
	}

	s.mu.Lock()
	s.state.Status = status
	if modelName != "" {
		s.state.ModelName = modelName
	}
	ev := s.eventLocked(EventStatusChanged, nil)
	s.mu.Unlock()
	s.emit(ev)

	s.logger.Info("backend status", "status", status.String(), "model", modelName)
	return status
}

// ClearConversation asks the backend to forget the conversation and then
// resets the local log. The local reset happens even when the backend call
// fails.
func (s *Session) ClearConversation(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.clear")
	defer span.End()

	if err := s.backend.Clear(ctx); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to clear conversation", "error", err)
	}

	s.mu.Lock()
	s.messages = nil
	s.state.MessageCount = 0
	s.state.WelcomeVisible = true
	ev := s.eventLocked(EventConversationCleared, nil)
	s.mu.Unlock()
	s.emit(ev)

	s.logger.Info("conversation cleared")
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Session) ToggleTheme() Theme {
	s.mu.Lock()
	s.state.Theme = s.state.Theme.Toggled()
	theme := s.state.Theme
	ev := s.eventLocked(EventThemeChanged, nil)
	s.mu.Unlock()
	s.emit(ev)
	return theme
}

func (s *Session) appendLocked(role Role, content string) Message {
	msg := newMessage(role, content, s.now())
	s.messages = append(s.messages, msg)
	s.state.WelcomeVisible = false
	return msg
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if st.Placeholder != nil {
		p := *st.Placeholder
		st.Placeholder = &p
	}
	return st
}

func (s *Session) eventLocked(kind EventKind, msg *Message) Event {
	ev := Event{Kind: kind, State: s.snapshotLocked()}
	if msg != nil {
		m := *msg
		ev.Message = &m
	}
	return ev
}

func (s *Session) emit(events ...Event) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			o.Observe(ev)
		}
	}
}
