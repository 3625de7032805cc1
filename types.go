package forgellm

import (
	"context"
	"time"
)

// Message roles understood by every provider adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single conversation turn. Content is never copied into
// observability events.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Validate checks the message for caller misuse.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return NewValidationError("invalid message role: " + m.Role)
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return NewValidationError("tool message requires tool_call_id")
	}
	return nil
}

// TokenUsage records token consumption reported by a provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition describes a tool made available to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ResponseFormat constrains the shape of the model output.
type ResponseFormat struct {
	Type   string         `json:"type"` // "text" or "json"
	Schema map[string]any `json:"schema,omitempty"`
}

// ChatRequest is the canonical request passed through the resilience layer
// to a provider adapter.
type ChatRequest struct {
	Provider       string
	Model          string
	Messages       []Message
	Tools          []ToolDefinition
	ResponseFormat *ResponseFormat
	Temperature    float64
	MaxTokens      int

	// EstimatedTokens is the caller's estimate used for tokens-per-minute
	// admission. The exact count is only known after the call completes.
	EstimatedTokens int
}

// Validate checks the request for caller misuse before any admission work.
func (r *ChatRequest) Validate() error {
	if r == nil {
		return NewValidationError("request is nil")
	}
	if r.Provider == "" {
		return NewValidationError("provider is required")
	}
	if len(r.Messages) == 0 {
		return NewValidationError("at least one message is required")
	}
	for _, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Deterministic reports whether the request is eligible for caching when the
// cache requires deterministic requests (temperature zero).
func (r *ChatRequest) Deterministic() bool {
	return r.Temperature == 0
}

// ChatResponse is the canonical provider response.
type ChatResponse struct {
	ID           string
	Content      string
	Model        string
	Provider     string
	Usage        TokenUsage
	ToolCalls    []ToolCall
	FinishReason string
	CreatedAt    time.Time
}

// HasToolCalls reports whether the model requested any tool invocations.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// ChatChunk is one streaming delta delivered to a StreamHandler.
type ChatChunk struct {
	Index    int
	Content  string
	ToolCall *ToolCall
	Done     bool
}

// StreamHandler receives streaming chunks as they arrive.
type StreamHandler func(chunk ChatChunk)

// ProviderAdapter is the consumed interface: vendor-specific marshalling and
// HTTP I/O live behind it. Errors returned from Chat/ChatStream must be
// classifiable via the ProviderError taxonomy for retry decisions.
type ProviderAdapter interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStream(ctx context.Context, req *ChatRequest, handler StreamHandler) (*ChatResponse, error)
}

// CallFunc is a single wrapped provider invocation, as seen by the retry
// layer.
type CallFunc func(ctx context.Context) (*ChatResponse, error)

// Option configures a Client.
type Option func(*Client)
