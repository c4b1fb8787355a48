package tokenizer

import "strings"

// Counter is the token counting interface used by the batch executor.
type Counter interface {
	// CountTokens returns the estimated token count for a text string.
	CountTokens(text string) (int, error)

	// CountMessages returns the estimated total for a conversation,
	// including per-message overhead (role markers, separators).
	CountMessages(messages []Message) (int, error)

	// Name identifies the counter implementation.
	Name() string
}

// Message is a lightweight role/content pair, kept local to avoid a
// dependency on the llm package.
type Message struct {
	Role    string
	Content string
}

// ForModel returns a tiktoken-backed counter for OpenAI-family models and
// the character estimator for everything else.
func ForModel(model string) Counter {
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "text-") {
		return NewTiktokenCounter(model)
	}
	return NewEstimator()
}
