package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Command names a session operation a key press dispatches to
type Command int

const (
	CommandNone Command = iota
	CommandSend
	CommandClear
	CommandToggleTheme
	CommandQuit
)

type keyMap struct {
	Send     key.Binding
	Newline  key.Binding
	Clear    key.Binding
	Theme    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "theme"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.Clear, k.Theme, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline},
		{k.Clear, k.Theme},
		{k.PageUp, k.PageDown, k.Quit},
	}
}

// commandFor maps a key press to the session command it triggers.
func (k keyMap) commandFor(km tea.KeyMsg) Command {
	switch {
	case key.Matches(km, k.Quit):
		return CommandQuit
	case key.Matches(km, k.Send):
		return CommandSend
	case key.Matches(km, k.Clear):
		return CommandClear
	case key.Matches(km, k.Theme):
		return CommandToggleTheme
	default:
		return CommandNone
	}
}
