// Package llm defines the core types shared by the batch completion adapter:
// conversation messages, normalized sampling options, request descriptors for
// the chat and text completion modes, the Client contract implemented by
// OpenAI-compatible backends, and the unified error taxonomy with HTTP status
// classification.
//
// The package holds no network code and no batch control flow. Backends live
// in llm/openaicompat, orchestration lives in llm/batch.
package llm
