// Package tokenizer estimates prompt token counts before dispatch.
//
// The batch executor uses these counters for debug logging and budget stats
// only; estimates never modify a request, and the authoritative usage numbers
// are the ones the endpoint reports in its response.
//
// Two implementations are provided: a tiktoken-backed counter for
// OpenAI-family models and a CJK-aware character heuristic for everything
// else. ForModel picks the right one.
package tokenizer
