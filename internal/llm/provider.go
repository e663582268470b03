package llm

import (
	"context"
	"fmt"
)

// Role is the canonical role vocabulary. Backends with a different
// vocabulary relabel inside their own adapter; nothing outside an
// adapter ever sees a backend-specific role string.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Provider is implemented once per external backend.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string

	// Send issues one request and returns either plain text or a list
	// of tool invocations. Transport failures return *TransportError.
	Send(ctx context.Context, req *Request) (Outcome, error)
}

// Message is one entry in the canonical conversation. The conversation
// is an append-only ordered log; messages are never mutated after
// being added.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured request, emitted by a model, to run one
// named operation with given arguments.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition defines a tool that can be called by the LLM
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

// JSONSchema represents a JSON Schema for tool parameters
type JSONSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]JSONProperty `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`

	// AdditionalProperties marks the shape as open-ended. It is
	// stripped by SanitizeTools before transmission; at least one
	// backend rejects the marker outright.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
}

// JSONProperty represents a property in a JSON Schema
type JSONProperty struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Enum        []string      `json:"enum,omitempty"`
	Default     any           `json:"default,omitempty"`
	Items       *JSONProperty `json:"items,omitempty"`
}

// Request carries the canonical conversation plus the tool catalog to
// one backend.
type Request struct {
	Model       string           `json:"model"`
	System      string           `json:"system,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Outcome is the provider response sum type: exactly one of
// TextOutcome or ToolCallOutcome. The case is carried by the type,
// never inferred from which fields happen to be set.
type Outcome interface {
	isOutcome()
}

// TextOutcome ends the turn with the model's final text.
type TextOutcome struct {
	Text  string
	Usage Usage
}

// ToolCallOutcome asks the caller to execute the listed invocations
// and come back with one result per invocation.
type ToolCallOutcome struct {
	Invocations []ToolCall
	Usage       Usage
}

func (TextOutcome) isOutcome()     {}
func (ToolCallOutcome) isOutcome() {}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TransportError is returned when a backend answers with a non-success
// status. It is never swallowed and there is no fallback to another
// backend; the error propagates to whoever invoked the turn.
type TransportError struct {
	Provider string
	Status   int
	Body     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: API error: status %d, body: %s", e.Provider, e.Status, e.Body)
}

// SanitizeTools is the one universal transform applied to the catalog
// before transmission: it drops the additionalProperties marker from
// every parameter shape. Definitions are copied; the catalog itself is
// immutable.
func SanitizeTools(defs []ToolDefinition) []ToolDefinition {
	if len(defs) == 0 {
		return nil
	}
	out := make([]ToolDefinition, len(defs))
	for i, d := range defs {
		d.Parameters.AdditionalProperties = nil
		out[i] = d
	}
	return out
}

// ProviderConfig holds configuration for a provider
type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}
