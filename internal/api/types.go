package api

// Backend endpoint paths
const (
	PathChat    = "/api/chat"
	PathHistory = "/api/history"
	PathConfig  = "/api/config"
	PathClear   = "/api/clear"
)

// ChatRequest represents the request body for the chat endpoint
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents the response from the chat endpoint. Failed
// requests carry only Error; Success is absent or false.
type ChatResponse struct {
	Success     bool            `json:"success"`
	UserMessage *HistoryMessage `json:"user_message,omitempty"`
	AIMessage   *HistoryMessage `json:"ai_message,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// HistoryMessage is a single stored turn as the backend reports it
type HistoryMessage struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HistoryResponse represents the response from the history endpoint
type HistoryResponse struct {
	Messages    []HistoryMessage `json:"messages"`
	SessionInfo *SessionInfo     `json:"session_info,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// SessionInfo describes the backend-side session that owns the history
type SessionInfo struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// ConfigResponse represents the response from the config endpoint
type ConfigResponse struct {
	HasModel    bool         `json:"has_model"`
	ModelConfig *ModelConfig `json:"model_config,omitempty"`
	Theme       string       `json:"theme,omitempty"`
	MaxHistory  int          `json:"max_history,omitempty"`
}

// ModelConfig is the subset of the backend model description the client shows
type ModelConfig struct {
	ModelName string `json:"model_name"`
	ModelRepo string `json:"model_repo,omitempty"`
}

// ModelName returns the configured model name, or "" when none was reported.
func (c *ConfigResponse) ModelName() string {
	if c == nil || c.ModelConfig == nil {
		return ""
	}
	return c.ModelConfig.ModelName
}
