package ui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"UnlimitedChat/internal/locale"
	"UnlimitedChat/internal/session"
)

const (
	headerHeight = 2
	inputHeight  = 3
	footerHeight = inputHeight + 3 // input border plus help line
)

// sessionChangedMsg wakes the model after the session reported a change
type sessionChangedMsg struct{}

// sessionInitializedMsg is delivered once history and status have loaded
type sessionInitializedMsg struct{}

// sendFinishedMsg is delivered when a dispatched send has returned
type sendFinishedMsg struct{}

// Model is the bubbletea model of the chat screen
type Model struct {
	ctx     context.Context
	sess    *session.Session
	catalog locale.Catalog
	logger  *slog.Logger

	changes     chan struct{}
	unsubscribe func()

	keys     keyMap
	help     help.Model
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles
	renderer *glamour.TermRenderer

	state    session.State
	messages []session.Message

	width   int
	height  int
	ready   bool
	pending bool // a send was dispatched and has not returned yet
}

// New builds the chat screen for sess. The model subscribes to the session
// immediately; Close releases the subscription.
func New(ctx context.Context, sess *session.Session, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := sess.Catalog()

	ta := textarea.New()
	ta.Placeholder = catalog.InputHint
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:      ctx,
		sess:     sess,
		catalog:  catalog,
		logger:   logger,
		changes:  make(chan struct{}, 1),
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    ta,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}

	// Coalescing wake-up: the model re-reads the whole snapshot, so a
	// pending signal already covers any later change.
	m.unsubscribe = sess.Subscribe(session.ObserverFunc(func(session.Event) {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}))

	m.state = sess.State()
	m.messages = sess.Messages()
	m.applyTheme(m.state.Theme)
	return m
}

// Close unsubscribes the model from the session.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init starts the cursor, the spinner, the change listener and the
// session's initial history and status fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForChange(),
		m.initSession(),
	)
}

func (m *Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		<-changes
		return sessionChangedMsg{}
	}
}

func (m *Model) initSession() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		sess.Init(ctx)
		return sessionInitializedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch m.keys.commandFor(msg) {
		case CommandQuit:
			m.Close()
			return m, tea.Quit
		case CommandSend:
			return m, m.dispatch(CommandSend)
		case CommandClear:
			return m, m.dispatch(CommandClear)
		case CommandToggleTheme:
			return m, m.dispatch(CommandToggleTheme)
		}

		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case sessionChangedMsg:
		m.refresh()
		cmds = append(cmds, m.waitForChange())

	case sendFinishedMsg:
		m.pending = false
		m.refresh()

	case sessionInitializedMsg:
		m.logger.Debug("session initialized", "messages", len(m.sess.Messages()))
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.state.Placeholder != nil {
			m.renderContent()
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// dispatch runs a named session command. Network-bound commands run as
// bubbletea commands so the event loop keeps drawing the placeholder.
func (m *Model) dispatch(c Command) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	switch c {
	case CommandSend:
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.sending() {
			return nil
		}
		m.pending = true
		m.input.Reset()
		return func() tea.Msg {
			sess.SendMessage(ctx, text)
			return sendFinishedMsg{}
		}
	case CommandClear:
		return func() tea.Msg {
			sess.ClearConversation(ctx)
			return nil
		}
	case CommandToggleTheme:
		sess.ToggleTheme()
		m.refresh()
	}
	return nil
}

// sending reports whether a send is in flight, including one dispatched
// but not yet started by the session.
func (m *Model) sending() bool {
	return m.pending || m.sess.State().IsSending
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	bodyHeight := height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = bodyHeight
	m.input.SetWidth(width - 6) // room for the send affordance
	m.help.Width = width
	m.ready = true

	m.rebuildRenderer()
	m.renderContent()
}

// refresh pulls a fresh snapshot from the session and redraws the body.
func (m *Model) refresh() {
	m.state = m.sess.State()
	m.messages = m.sess.Messages()
	if m.state.Theme != m.styles.Theme {
		m.applyTheme(m.state.Theme)
	}
	m.renderContent()
}

func (m *Model) applyTheme(theme session.Theme) {
	m.styles = NewStyles(theme)
	m.input.FocusedStyle.Base = m.styles.Input
	m.input.BlurredStyle.Base = m.styles.Input
	m.spinner.Style = m.styles.Bot
	m.rebuildRenderer()
}

func (m *Model) rebuildRenderer() {
	r, err := newRenderer(m.styles.Theme, m.width-4)
	if err != nil {
		m.logger.Warn("failed to create markdown renderer", "error", err)
		m.renderer = nil
		return
	}
	m.renderer = r
}

// renderContent lays out the conversation into the viewport and keeps the
// newest message in view.
func (m *Model) renderContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.conversationView())
	m.viewport.GotoBottom()
}
