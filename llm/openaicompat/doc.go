// Package openaicompat implements llm.Client against any OpenAI-compatible
// inference endpoint.
//
// Both logical operations are covered: chat-style completion posts the
// conversation to /v1/chat/completions, text-style completion posts a flat
// prompt to /v1/completions. Responses are normalized to
// llm.CompletionResponse; remote failures are classified through
// llm.MapHTTPError with the endpoint's own diagnostic message preserved.
//
// When Options.Stream is set the client requests an SSE stream and collects
// all chunks into a single final response. No incremental surface is exposed.
//
// Usage:
//
//	client := openaicompat.New(openaicompat.Config{
//	    BaseURL: "https://api.openai.com",
//	    APIKey:  apiKey,
//	}, logger)
//	resp, err := client.Complete(ctx, descriptor)
package openaicompat
