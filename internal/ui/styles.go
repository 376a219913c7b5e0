// Package ui is the full-screen terminal front end of the chat session.
// It owns no conversation state: every frame is drawn from a session
// snapshot taken after the session reports a change.
package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"UnlimitedChat/internal/session"
)

// Palette is the color scheme of one theme
type Palette struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color
	UserBubble lipgloss.Color
	BotBubble  lipgloss.Color
}

var (
	lightPalette = Palette{
		Foreground: lipgloss.Color("#1f2937"),
		Muted:      lipgloss.Color("#6b7280"),
		Primary:    lipgloss.Color("#4f46e5"),
		Accent:     lipgloss.Color("#0ea5e9"),
		Border:     lipgloss.Color("#d1d5db"),
		UserBubble: lipgloss.Color("#4f46e5"),
		BotBubble:  lipgloss.Color("#059669"),
	}

	darkPalette = Palette{
		Foreground: lipgloss.Color("#e5e7eb"),
		Muted:      lipgloss.Color("#9ca3af"),
		Primary:    lipgloss.Color("#818cf8"),
		Accent:     lipgloss.Color("#38bdf8"),
		Border:     lipgloss.Color("#374151"),
		UserBubble: lipgloss.Color("#a5b4fc"),
		BotBubble:  lipgloss.Color("#34d399"),
	}

	statusOnline  = lipgloss.Color("#22c55e")
	statusDemo    = lipgloss.Color("#eab308")
	statusOffline = lipgloss.Color("#ef4444")
)

// PaletteFor returns the palette of theme
func PaletteFor(theme session.Theme) Palette {
	if theme == session.ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// Styles holds the styled components for one theme
type Styles struct {
	Theme session.Theme

	Header   lipgloss.Style
	Title    lipgloss.Style
	Badge    lipgloss.Style
	Muted    lipgloss.Style
	Welcome  lipgloss.Style
	User     lipgloss.Style
	Bot      lipgloss.Style
	Time     lipgloss.Style
	Input    lipgloss.Style
	Send     lipgloss.Style
	Disabled lipgloss.Style
}

// NewStyles builds the styles for theme
func NewStyles(theme session.Theme) Styles {
	p := PaletteFor(theme)
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Border),
		Title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		Badge: lipgloss.NewStyle().
			Foreground(p.Accent).
			Padding(0, 1),
		Muted: lipgloss.NewStyle().
			Foreground(p.Muted),
		Welcome: lipgloss.NewStyle().
			Foreground(p.Foreground).
			Align(lipgloss.Center).
			Padding(2, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),
		User: lipgloss.NewStyle().
			Foreground(p.UserBubble).
			Bold(true),
		Bot: lipgloss.NewStyle().
			Foreground(p.BotBubble).
			Bold(true),
		Time: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary),
		Send: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			Padding(0, 1),
		Disabled: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 1),
	}
}

// StatusDot renders the availability indicator
func (s Styles) StatusDot(status session.Status) string {
	color := statusOffline
	switch status {
	case session.StatusReady:
		color = statusOnline
	case session.StatusDemo, session.StatusUnknown:
		color = statusDemo
	}
	return lipgloss.NewStyle().Foreground(color).Render("●")
}

// ThemeIcon is the toggle indicator: a sun offers the light theme while
// dark is active, a moon the other way round.
func ThemeIcon(theme session.Theme) string {
	if theme == session.ThemeDark {
		return "☀"
	}
	return "☾"
}

// newRenderer creates the markdown renderer matching theme
func newRenderer(theme session.Theme, width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	style := "dark"
	if theme == session.ThemeLight {
		style = "light"
	}
	return glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
}
