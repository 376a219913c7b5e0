package session

// State is a snapshot of the session's display state
type State struct {
	IsSending      bool
	MessageCount   int
	Theme          Theme
	WelcomeVisible bool
	Placeholder    *Placeholder
	Status         Status
	ModelName      string
}

// EventKind says which part of the state an event changed
type EventKind int

const (
	EventSendingChanged EventKind = iota + 1
	EventMessageAppended
	EventPlaceholderShown
	EventPlaceholderRemoved
	EventCounterChanged
	EventStatusChanged
	EventThemeChanged
	EventConversationCleared
)

func (k EventKind) String() string {
	switch k {
	case EventSendingChanged:
		return "sending_changed"
	case EventMessageAppended:
		return "message_appended"
	case EventPlaceholderShown:
		return "placeholder_shown"
	case EventPlaceholderRemoved:
		return "placeholder_removed"
	case EventCounterChanged:
		return "counter_changed"
	case EventStatusChanged:
		return "status_changed"
	case EventThemeChanged:
		return "theme_changed"
	case EventConversationCleared:
		return "conversation_cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after every state change. Message is set
// for EventMessageAppended only. State is the snapshot right after the change.
type Event struct {
	Kind    EventKind
	Message *Message
	State   State
}

// Observer receives session events. Observe is called outside the session
// lock and may call back into the session.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
