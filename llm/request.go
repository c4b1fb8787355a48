package llm

import "strings"

// Defaults holds optional local fallbacks applied to unset option fields at
// build time. The zero value applies nothing, leaving unset fields to the
// endpoint's own defaults. Defaults come from injected configuration, never
// from constants scattered across call sites, so every operation mode fills
// the same values.
type Defaults struct {
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// RequestBuilder produces immutable request descriptors for both completion
// modes. Building is pure value construction: the same inputs always yield
// the same descriptor.
type RequestBuilder struct {
	defaults Defaults
}

// NewRequestBuilder creates a builder with the given local fallbacks.
// Pass a zero Defaults to defer all defaulting to the endpoint.
func NewRequestBuilder(defaults Defaults) *RequestBuilder {
	return &RequestBuilder{defaults: defaults}
}

// BuildChat builds a chat-mode descriptor from an explicit conversation.
// The conversation must contain at least one turn.
func (b *RequestBuilder) BuildChat(model string, msgs []Message, opts CompletionOptions) (*RequestDescriptor, error) {
	if len(msgs) == 0 {
		return nil, invalidRequest("conversation must contain at least one message")
	}
	return &RequestDescriptor{
		Mode:     ModeChat,
		Model:    model,
		Messages: append([]Message(nil), msgs...),
		Options:  b.applyDefaults(opts),
	}, nil
}

// BuildChatFromPrompt synthesizes a chat conversation from a flat prompt:
// an optional system turn when systemPrompt is non-empty, then exactly one
// user turn. An empty prompt fails regardless of the system message.
func (b *RequestBuilder) BuildChatFromPrompt(model, prompt, systemPrompt string, opts CompletionOptions) (*RequestDescriptor, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, invalidRequest("prompt must not be empty")
	}
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})
	return &RequestDescriptor{
		Mode:     ModeChat,
		Model:    model,
		Messages: msgs,
		Options:  b.applyDefaults(opts),
	}, nil
}

// BuildText builds a text-mode descriptor from a single prompt.
func (b *RequestBuilder) BuildText(model, prompt string, opts CompletionOptions) (*RequestDescriptor, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, invalidRequest("prompt must not be empty")
	}
	return &RequestDescriptor{
		Mode:    ModeText,
		Model:   model,
		Prompt:  prompt,
		Options: b.applyDefaults(opts),
	}, nil
}

// applyDefaults fills unset fields from the configured fallbacks. This is the
// single defaulting layer: the normalizer never defaults, and descriptors for
// every mode go through here.
func (b *RequestBuilder) applyDefaults(opts CompletionOptions) CompletionOptions {
	out := opts.Clone()
	if out.Temperature == nil {
		out.Temperature = cloneFloat(b.defaults.Temperature)
	}
	if out.MaxTokens == nil {
		out.MaxTokens = cloneInt(b.defaults.MaxTokens)
	}
	if out.TopP == nil {
		out.TopP = cloneFloat(b.defaults.TopP)
	}
	if out.FrequencyPenalty == nil {
		out.FrequencyPenalty = cloneFloat(b.defaults.FrequencyPenalty)
	}
	if out.PresencePenalty == nil {
		out.PresencePenalty = cloneFloat(b.defaults.PresencePenalty)
	}
	return out
}
