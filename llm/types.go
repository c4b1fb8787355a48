package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation. Role ordering is caller-defined;
// the adapter validates only that a conversation is non-empty.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Mode selects which completion operation a RequestDescriptor targets.
type Mode string

const (
	// ModeChat sends a multi-turn conversation to the chat completions endpoint.
	ModeChat Mode = "chat"
	// ModeText sends a single flat prompt to the text completions endpoint.
	ModeText Mode = "text"
)

// RequestDescriptor is an immutable description of one remote completion call.
// Exactly one content form is populated: Messages for ModeChat, Prompt for
// ModeText. Descriptors are value snapshots; building one never mutates the
// options it was built from.
type RequestDescriptor struct {
	Mode     Mode
	Model    string
	Messages []Message
	Prompt   string
	Options  CompletionOptions
}

// Usage holds the token counters reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// CompletionResponse is the normalized result of a completion call.
// Raw preserves the undecoded endpoint payload for callers that need
// fields the normalization drops.
type CompletionResponse struct {
	ID           string          `json:"id,omitempty"`
	Model        string          `json:"model"`
	Content      string          `json:"content"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        Usage           `json:"usage,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// Client is the completion backend contract. Implementations perform exactly
// one remote call per Complete invocation and must honor ctx cancellation.
// Failures are reported as *Error where a remote status is known, or as a
// plain error for local faults; Classify handles both.
type Client interface {
	Complete(ctx context.Context, req *RequestDescriptor) (*CompletionResponse, error)
}
