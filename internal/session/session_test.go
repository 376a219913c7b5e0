package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"UnlimitedChat/internal/api"
	"UnlimitedChat/internal/locale"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu sync.Mutex

	chatResp   *api.ChatResponse
	chatErr    error
	chatGate   chan struct{} // when set, Chat blocks until it is closed
	chatCalled chan struct{}
	chatCalls  []string

	history    *api.HistoryResponse
	historyErr error
	config     *api.ConfigResponse
	configErr  error
	clearErr   error
	clearCalls int
}

func (f *fakeBackend) Chat(ctx context.Context, message string) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, message)
	gate, called := f.chatGate, f.chatCalled
	f.mu.Unlock()

	if called != nil {
		called <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.chatResp, f.chatErr
}

func (f *fakeBackend) History(ctx context.Context) (*api.HistoryResponse, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.history == nil {
		return &api.HistoryResponse{}, nil
	}
	return f.history, nil
}

func (f *fakeBackend) Config(ctx context.Context) (*api.ConfigResponse, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}
	return f.config, nil
}

func (f *fakeBackend) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.clearCalls++
	f.mu.Unlock()
	return f.clearErr
}

func (f *fakeBackend) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chatCalls...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(b Backend, opts ...Option) *Session {
	return New(b, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	st := s.State()

	assert.False(t, st.IsSending)
	assert.Equal(t, 0, st.MessageCount)
	assert.Equal(t, ThemeDark, st.Theme)
	assert.True(t, st.WelcomeVisible)
	assert.Nil(t, st.Placeholder)
	assert.Equal(t, StatusUnknown, st.Status)
	assert.Empty(t, s.Messages())
}

func TestSendMessageBlankIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		b := &fakeBackend{}
		s := newTestSession(b)
		rec := &recorder{}
		s.Subscribe(rec)

		assert.False(t, s.SendMessage(context.Background(), text))
		assert.Empty(t, b.calls())
		assert.Empty(t, s.Messages())
		assert.Empty(t, rec.kinds())
		assert.True(t, s.State().WelcomeVisible)
	}
}

func TestSendMessageSuccess(t *testing.T) {
	b := &fakeBackend{chatResp: &api.ChatResponse{
		Success:   true,
		AIMessage: &api.HistoryMessage{Role: "assistant", Content: "hi"},
	}}
	s := newTestSession(b)
	rec := &recorder{}
	s.Subscribe(rec)

	require.True(t, s.SendMessage(context.Background(), "  hello  "))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	st := s.State()
	assert.Equal(t, 2, st.MessageCount)
	assert.Nil(t, st.Placeholder)
	assert.False(t, st.IsSending)
	assert.False(t, st.WelcomeVisible)
	assert.Equal(t, []string{"hello"}, b.calls())

	assert.Equal(t, []EventKind{
		EventSendingChanged,
		EventMessageAppended,
		EventPlaceholderShown,
		EventPlaceholderRemoved,
		EventMessageAppended,
		EventCounterChanged,
		EventSendingChanged,
	}, rec.kinds())
}

func TestSendMessageApplicationFailure(t *testing.T) {
	b := &fakeBackend{chatResp: &api.ChatResponse{Success: false, Error: "boom"}}
	s := newTestSession(b)
	rec := &recorder{}
	s.Subscribe(rec)

	require.True(t, s.SendMessage(context.Background(), "hello"))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	var replies []Message
	for _, m := range msgs {
		if m.Role == RoleAssistant {
			replies = append(replies, m)
		}
	}
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Content, "boom")
	assert.True(t, strings.HasPrefix(replies[0].Content, s.Catalog().ErrorPrefix))

	st := s.State()
	assert.Equal(t, 0, st.MessageCount)
	assert.Nil(t, st.Placeholder)
	assert.False(t, st.IsSending)
	assert.Equal(t, 1, rec.count(EventPlaceholderShown))
	assert.Equal(t, 1, rec.count(EventPlaceholderRemoved))
	assert.Equal(t, 0, rec.count(EventCounterChanged))
}

func TestSendMessageNetworkFailure(t *testing.T) {
	b := &fakeBackend{chatErr: errors.New("connection refused")}
	catalog := locale.MustLookup(locale.English)
	s := newTestSession(b, WithCatalog(catalog))

	require.True(t, s.SendMessage(context.Background(), "hello"))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, catalog.NetworkError, msgs[1].Content)
	assert.Equal(t, 0, s.State().MessageCount)
	assert.Nil(t, s.State().Placeholder)
}

func TestSendMessageSuccessWithoutContentIsNetworkError(t *testing.T) {
	b := &fakeBackend{chatResp: &api.ChatResponse{Success: true}}
	s := newTestSession(b)

	require.True(t, s.SendMessage(context.Background(), "hello"))
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, s.Catalog().NetworkError, msgs[1].Content)
	assert.Equal(t, 0, s.State().MessageCount)
}

func TestSendMessageWhileInFlightIsNoop(t *testing.T) {
	b := &fakeBackend{
		chatResp:   &api.ChatResponse{Success: true, AIMessage: &api.HistoryMessage{Content: "hi"}},
		chatGate:   make(chan struct{}),
		chatCalled: make(chan struct{}, 1),
	}
	s := newTestSession(b)

	done := make(chan bool)
	go func() { done <- s.SendMessage(context.Background(), "first") }()
	<-b.chatCalled

	st := s.State()
	assert.True(t, st.IsSending)
	require.NotNil(t, st.Placeholder)
	before := len(s.Messages())

	assert.False(t, s.SendMessage(context.Background(), "second"))
	assert.Len(t, s.Messages(), before)

	close(b.chatGate)
	assert.True(t, <-done)
	assert.Equal(t, []string{"first"}, b.calls())
	assert.Len(t, s.Messages(), 2)
	assert.False(t, s.State().IsSending)

	b.mu.Lock()
	b.chatGate, b.chatCalled = nil, nil
	b.mu.Unlock()
	assert.True(t, s.SendMessage(context.Background(), "third"))
	assert.Equal(t, 4, s.State().MessageCount)
}

func TestToggleThemeTwiceRestores(t *testing.T) {
	s := newTestSession(&fakeBackend{}, WithTheme(ThemeLight))
	rec := &recorder{}
	s.Subscribe(rec)

	assert.Equal(t, ThemeDark, s.ToggleTheme())
	assert.Equal(t, ThemeLight, s.ToggleTheme())
	assert.Equal(t, ThemeLight, s.State().Theme)
	assert.Empty(t, s.Messages())
	assert.Equal(t, []EventKind{EventThemeChanged, EventThemeChanged}, rec.kinds())
}

func TestLoadHistoryEmpty(t *testing.T) {
	s := newTestSession(&fakeBackend{history: &api.HistoryResponse{Messages: []api.HistoryMessage{}}})
	s.LoadHistory(context.Background())

	st := s.State()
	assert.True(t, st.WelcomeVisible)
	assert.Equal(t, 0, st.MessageCount)
	assert.Empty(t, s.Messages())
}

func TestLoadHistoryAppendsInOrder(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newTestSession(&fakeBackend{history: &api.HistoryResponse{Messages: []api.HistoryMessage{
		{ID: "m1", Role: "user", Content: "q1", Timestamp: "2024-05-01T10:00:00.123456"},
		{Role: "assistant", Content: "a1"},
		{Role: "system", Content: "ignored"},
		{Role: "User", Content: "q2"},
	}}}, WithClock(func() time.Time { return fixed }))

	s.LoadHistory(context.Background())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, []string{"q1", "a1", "q2"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	assert.Equal(t, 2024, msgs[0].Timestamp.Year())
	assert.Equal(t, fixed, msgs[1].Timestamp)

	st := s.State()
	assert.False(t, st.WelcomeVisible)
	assert.Equal(t, 3, st.MessageCount)
}

func TestLoadHistoryErrorIsSilent(t *testing.T) {
	s := newTestSession(&fakeBackend{historyErr: errors.New("down")})
	rec := &recorder{}
	s.Subscribe(rec)

	s.LoadHistory(context.Background())
	assert.Empty(t, s.Messages())
	assert.True(t, s.State().WelcomeVisible)
	assert.Empty(t, rec.kinds())
}

func TestCheckBackendStatus(t *testing.T) {
	tests := []struct {
		name   string
		b      *fakeBackend
		want   Status
		model  string
		online bool
	}{
		{"ready", &fakeBackend{config: &api.ConfigResponse{HasModel: true, ModelConfig: &api.ModelConfig{ModelName: "GPT 20B"}}}, StatusReady, "GPT 20B", true},
		{"demo", &fakeBackend{config: &api.ConfigResponse{HasModel: false}}, StatusDemo, "", false},
		{"unreachable", &fakeBackend{configErr: errors.New("refused")}, StatusUnreachable, "", false},
		{"empty config", &fakeBackend{}, StatusDemo, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(tt.b)
			rec := &recorder{}
			s.Subscribe(rec)

			assert.Equal(t, tt.want, s.CheckBackendStatus(context.Background()))
			st := s.State()
			assert.Equal(t, tt.want, st.Status)
			assert.Equal(t, tt.online, st.Status.Online())
			assert.Equal(t, tt.model, st.ModelName)
			assert.Equal(t, []EventKind{EventStatusChanged}, rec.kinds())
		})
	}
}

func TestClearConversationResetsEvenOnBackendFailure(t *testing.T) {
	for _, clearErr := range []error{nil, errors.New("down")} {
		b := &fakeBackend{
			chatResp: &api.ChatResponse{Success: true, AIMessage: &api.HistoryMessage{Content: "hi"}},
			clearErr: clearErr,
		}
		s := newTestSession(b)
		require.True(t, s.SendMessage(context.Background(), "hello"))
		require.Equal(t, 2, s.State().MessageCount)

		s.ClearConversation(context.Background())

		st := s.State()
		assert.Empty(t, s.Messages())
		assert.Equal(t, 0, st.MessageCount)
		assert.True(t, st.WelcomeVisible)
		assert.Equal(t, 1, b.clearCalls)
	}
}

func TestClearWhileSendingKeepsLateReply(t *testing.T) {
	b := &fakeBackend{
		chatResp:   &api.ChatResponse{Success: true, AIMessage: &api.HistoryMessage{Content: "late"}},
		chatGate:   make(chan struct{}),
		chatCalled: make(chan struct{}, 1),
	}
	s := newTestSession(b)

	done := make(chan bool)
	go func() { done <- s.SendMessage(context.Background(), "hello") }()
	<-b.chatCalled

	s.ClearConversation(context.Background())
	st := s.State()
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, st.MessageCount)
	assert.True(t, st.WelcomeVisible)
	assert.True(t, st.IsSending)

	close(b.chatGate)
	require.True(t, <-done)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, "late", msgs[0].Content)

	st = s.State()
	assert.Equal(t, 2, st.MessageCount)
	assert.False(t, st.WelcomeVisible)
	assert.False(t, st.IsSending)
	assert.Nil(t, st.Placeholder)
	assert.Equal(t, 1, b.clearCalls)
}

func TestInitRunsHistoryAndStatus(t *testing.T) {
	s := newTestSession(&fakeBackend{
		history: &api.HistoryResponse{Messages: []api.HistoryMessage{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}}},
		config:  &api.ConfigResponse{HasModel: true},
	})
	s.Init(context.Background())

	st := s.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, 2, st.MessageCount)
	assert.Len(t, s.Messages(), 2)
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec)
	s.ToggleTheme()
	unsubscribe()
	s.ToggleTheme()
	assert.Len(t, rec.kinds(), 1)
}

func TestObserverMayCallBackIntoSession(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	var seen []Theme
	s.Subscribe(ObserverFunc(func(ev Event) {
		seen = append(seen, s.State().Theme)
	}))
	s.ToggleTheme()
	assert.Equal(t, []Theme{ThemeLight}, seen)
}

func TestEventCarriesMessageCopy(t *testing.T) {
	b := &fakeBackend{chatResp: &api.ChatResponse{Success: true, AIMessage: &api.HistoryMessage{Content: "hi"}}}
	s := newTestSession(b)
	var appended []string
	s.Subscribe(ObserverFunc(func(ev Event) {
		if ev.Kind == EventMessageAppended {
			require.NotNil(t, ev.Message)
			appended = append(appended, ev.Message.Content)
		} else {
			assert.Nil(t, ev.Message)
		}
	}))
	s.SendMessage(context.Background(), "hello")
	assert.Equal(t, []string{"hello", "hi"}, appended)
}

func TestParseHelpers(t *testing.T) {
	r, err := ParseRole(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)
	_, err = ParseRole("tool")
	assert.Error(t, err)

	th, err := ParseTheme("LIGHT")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th)
	_, err = ParseTheme("solarized")
	assert.Error(t, err)

	fallback := time.Unix(0, 0)
	assert.Equal(t, fallback, parseHistoryTime("not a time", fallback))
	assert.Equal(t, fallback, parseHistoryTime("", fallback))
	assert.Equal(t, 2024, parseHistoryTime("2024-05-01T10:00:00Z", fallback).Year())
}
