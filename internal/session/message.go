package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the roles the backend stores, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Message represents a single chat message. Messages are never modified
// after they enter the log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(role Role, content string, ts time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}

// Placeholder marks a reply the session is still waiting for
type Placeholder struct {
	ID    string
	Since time.Time
}

// Theme is the visual theme of the client
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Toggled returns the other theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Status reflects what the backend last reported about itself
type Status int

const (
	StatusUnknown Status = iota
	StatusReady
	StatusDemo
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusDemo:
		return "demo"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Online reports whether the backend has a model loaded.
func (s Status) Online() bool {
	return s == StatusReady
}

// historyTimeLayouts are the timestamp formats the backend has been seen
// to emit; Python isoformat() omits the zone.
var historyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseHistoryTime(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range historyTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts
		}
	}
	return fallback
}
