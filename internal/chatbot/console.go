package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"UnlimitedChat/internal/locale"
	"UnlimitedChat/internal/session"
)

// Console is the line-oriented front end: one input line per message,
// slash commands for everything else.
type Console struct {
	sess    *session.Session
	catalog locale.Catalog
	logger  *slog.Logger

	mu     sync.Mutex // serializes writes to out
	out    io.Writer
	typing bool // the user message being appended was typed on this console
}

// NewConsole creates a console that renders sess to out
func NewConsole(sess *session.Session, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		sess:    sess,
		catalog: sess.Catalog(),
		logger:  logger,
		out:     out,
	}
}

// Observe prints what changed. Typed user messages are not echoed.
func (c *Console) Observe(ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case session.EventMessageAppended:
		msg := ev.Message
		if msg.Role == session.RoleUser && c.typing {
			return
		}
		c.printMessageLocked(*msg)
	case session.EventPlaceholderShown:
		fmt.Fprintf(c.out, "%s...\n", c.catalog.Thinking)
	case session.EventStatusChanged:
		fmt.Fprintln(c.out, c.statusLine(ev.State))
	case session.EventThemeChanged:
		fmt.Fprintf(c.out, "theme: %s\n", ev.State.Theme)
	case session.EventConversationCleared:
		c.printWelcomeLocked(ev.State)
	}
}

func (c *Console) printMessageLocked(msg session.Message) {
	label := c.catalog.AssistantLabel
	if msg.Role == session.RoleUser {
		label = c.catalog.UserLabel
	}
	fmt.Fprintf(c.out, "[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), label, msg.Content)
}

func (c *Console) printWelcomeLocked(st session.State) {
	name := st.ModelName
	if name == "" {
		name = "AI"
	}
	fmt.Fprintln(c.out, c.catalog.WelcomeTitle)
	fmt.Fprintln(c.out, c.catalog.Welcome(name))
	fmt.Fprintln(c.out, c.catalog.WelcomeHint)
}

func (c *Console) statusLine(st session.State) string {
	label := c.catalog.StatusUnknown
	switch st.Status {
	case session.StatusReady:
		label = c.catalog.StatusReady
	case session.StatusDemo:
		label = c.catalog.StatusDemo
	case session.StatusUnreachable:
		label = c.catalog.StatusUnreachable
	}
	line := "● " + label
	if st.ModelName != "" {
		line += " (" + st.ModelName + ")"
	}
	return line + "  " + c.catalog.Count(st.MessageCount)
}

// handleCommand handles special commands
func (c *Console) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/clear":
		c.sess.ClearConversation(ctx)
		return false, nil

	case "/theme":
		c.sess.ToggleTheme()
		return false, nil

	case "/status":
		c.sess.CheckBackendStatus(ctx)
		return false, nil

	case "/history":
		msgs := c.sess.Messages()
		c.mu.Lock()
		for _, msg := range msgs {
			c.printMessageLocked(msg)
		}
		c.mu.Unlock()
		return false, nil

	case "/help":
		c.mu.Lock()
		fmt.Fprintln(c.out, "Available commands:")
		fmt.Fprintln(c.out, "  /quit, /exit  - Exit")
		fmt.Fprintln(c.out, "  /clear        - Clear the conversation")
		fmt.Fprintln(c.out, "  /theme        - Toggle light/dark theme")
		fmt.Fprintln(c.out, "  /status       - Check backend status")
		fmt.Fprintln(c.out, "  /history      - Print the conversation")
		fmt.Fprintln(c.out, "  /help         - Show this help message")
		c.mu.Unlock()
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// Run subscribes to the session, loads history and status, then reads
// input until EOF, /quit or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	unsubscribe := c.sess.Subscribe(c)
	defer unsubscribe()

	c.mu.Lock()
	fmt.Fprintln(c.out, "=== Unlimited Agent ===")
	fmt.Fprintln(c.out, "Type /help for commands, /quit to exit")
	c.mu.Unlock()

	c.sess.Init(ctx)
	if c.sess.State().WelcomeVisible {
		c.mu.Lock()
		c.printWelcomeLocked(c.sess.State())
		c.mu.Unlock()
	}

	stop := make(chan struct{})
	defer close(stop)
	lines, readErr := readLines(in, stop)
	for {
		var input string
		select {
		case <-ctx.Done():
			c.logger.Info("console interrupted", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				c.logger.Info("console exited")
				return nil
			}
			input = strings.TrimSpace(line)
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := c.handleCommand(ctx, input)
			if err != nil {
				c.mu.Lock()
				fmt.Fprintf(c.out, "Error: %v\n", err)
				c.mu.Unlock()
				c.logger.Warn("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		c.mu.Lock()
		c.typing = true
		c.mu.Unlock()
		c.sess.SendMessage(ctx, input)
		c.mu.Lock()
		c.typing = false
		c.mu.Unlock()
	}

	c.logger.Info("console exited")
	return nil
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. lines is closed at EOF or on a read error, after which
// readErr yields the error (nil at EOF). Closing stop releases a pending
// send; a Read already blocked on in only returns once in delivers data or
// is closed.
func readLines(in io.Reader, stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}
