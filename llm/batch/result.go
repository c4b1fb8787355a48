package batch

import (
	"github.com/BaSui01/batchflow/llm"
)

// Operation tags which request-construction strategy a batch uses.
type Operation string

const (
	// OpChat builds each request from the record's explicit conversation.
	OpChat Operation = "chat"
	// OpChatFromPrompt synthesizes a two-turn conversation from the record's
	// flat prompt plus an optional system prompt.
	OpChatFromPrompt Operation = "chat_from_prompt"
	// OpText builds a single-prompt text completion request.
	OpText Operation = "text"
)

// InputRecord is one unit of work. The executor reads only the fields
// relevant to the batch's operation; Payload is opaque caller data carried
// through to the matching OutputRecord untouched.
type InputRecord struct {
	// ID identifies the record in logs and output. Auto-assigned when empty.
	ID string

	// Messages is the explicit conversation for OpChat.
	Messages []llm.Message

	// Prompt is the flat prompt for OpText and OpChatFromPrompt.
	Prompt string

	// SystemPrompt optionally prefixes the synthesized conversation in
	// OpChatFromPrompt. Ignored by the other operations.
	SystemPrompt string

	// Payload is opaque caller data, never inspected or transformed.
	Payload any
}

// Status tags an OutputRecord as success or failure.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// OutputRecord is the per-record result. Exactly one is produced for every
// processed input record, at the same index.
type OutputRecord struct {
	Index     int                     `json:"index"`
	ID        string                  `json:"id,omitempty"`
	Status    Status                  `json:"status"`
	Model     string                  `json:"model"`
	Operation Operation               `json:"operation"`
	Response  *llm.CompletionResponse `json:"response,omitempty"`
	ErrorCode llm.ErrorCode           `json:"error_code,omitempty"`
	ErrorMsg  string                  `json:"error_message,omitempty"`
	Payload   any                     `json:"-"`
}

// assembleSuccess merges a completion response with the batch bookkeeping
// fields into a success record.
func assembleSuccess(idx int, rec InputRecord, op Operation, model string, resp *llm.CompletionResponse) OutputRecord {
	return OutputRecord{
		Index:     idx,
		ID:        rec.ID,
		Status:    StatusSuccess,
		Model:     model,
		Operation: op,
		Response:  resp,
		Payload:   rec.Payload,
	}
}

// assembleFailure merges a classified error into a failure record.
func assembleFailure(idx int, rec InputRecord, op Operation, model string, cerr *llm.Error) OutputRecord {
	return OutputRecord{
		Index:     idx,
		ID:        rec.ID,
		Status:    StatusFailure,
		Model:     model,
		Operation: op,
		ErrorCode: cerr.Code,
		ErrorMsg:  cerr.Message,
		Payload:   rec.Payload,
	}
}
