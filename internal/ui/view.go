package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"UnlimitedChat/internal/session"
)

const defaultModelName = "AI"

func (m *Model) View() string {
	if !m.ready {
		return m.catalog.StatusUnknown + "…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

func (m *Model) statusLabel() string {
	switch m.state.Status {
	case session.StatusReady:
		return m.catalog.StatusReady
	case session.StatusDemo:
		return m.catalog.StatusDemo
	case session.StatusUnreachable:
		return m.catalog.StatusUnreachable
	default:
		return m.catalog.StatusUnknown
	}
}

func (m *Model) modelName() string {
	if m.state.ModelName != "" {
		return m.state.ModelName
	}
	return defaultModelName
}

func (m *Model) headerView() string {
	left := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Title.Render("Unlimited Agent"),
		m.styles.Badge.Render("🧠 "+m.modelName()),
	)
	right := strings.Join([]string{
		m.styles.StatusDot(m.state.Status) + " " + m.styles.Muted.Render(m.statusLabel()),
		m.styles.Muted.Render(m.catalog.Count(m.state.MessageCount)),
		ThemeIcon(m.state.Theme),
	}, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) conversationView() string {
	if m.state.WelcomeVisible && len(m.messages) == 0 && m.state.Placeholder == nil {
		return m.welcomeView()
	}

	var b strings.Builder
	for _, msg := range m.messages {
		b.WriteString(m.messageView(msg))
		b.WriteString("\n")
	}
	if m.state.Placeholder != nil {
		b.WriteString(m.styles.Bot.Render(m.catalog.AssistantLabel))
		b.WriteString("\n  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.styles.Muted.Render(m.catalog.Thinking))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) welcomeView() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		m.styles.Title.Render(m.catalog.WelcomeTitle),
		"",
		m.catalog.Welcome(m.modelName()),
		m.catalog.WelcomeHint,
	)
	panel := m.styles.Welcome.Render(body)
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, panel)
}

func (m *Model) messageView(msg session.Message) string {
	label := m.styles.Bot.Render(m.catalog.AssistantLabel)
	if msg.Role == session.RoleUser {
		label = m.styles.User.Render(m.catalog.UserLabel)
	}
	header := label + " " + m.styles.Time.Render(msg.Timestamp.Format("15:04:05"))
	return header + "\n" + m.renderMarkdown(msg.Content)
}

func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return "  " + content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		m.logger.Warn("failed to render markdown", "error", err)
		return "  " + content + "\n"
	}
	return out
}

func (m *Model) footerView() string {
	send := m.styles.Send.Render("➤")
	if m.pending || m.state.IsSending {
		send = m.styles.Disabled.Render(m.spinner.View())
	}
	input := lipgloss.JoinHorizontal(lipgloss.Center, m.input.View(), send)
	return lipgloss.JoinVertical(lipgloss.Left, input, m.help.View(m.keys))
}
