package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/batchflow/llm"
)

func chatDescriptor(opts llm.CompletionOptions) *llm.RequestDescriptor {
	return &llm.RequestDescriptor{
		Mode:     llm.ModeChat,
		Model:    "test-model",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		Options:  opts,
	}
}

func successBody(content string) map[string]any {
	return map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	c := New(Config{BaseURL: "https://example.com"}, nil)
	require.NotNil(t, c)
	assert.Equal(t, "/v1/chat/completions", c.cfg.ChatPath)
	assert.Equal(t, "/v1/completions", c.cfg.TextPath)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	assert.NotNil(t, c.logger)
}

func TestNew_CustomPaths(t *testing.T) {
	c := New(Config{BaseURL: "https://example.com", ChatPath: "/api/chat", TextPath: "/api/text", Timeout: 5 * time.Second}, zap.NewNop())
	assert.Equal(t, "/api/chat", c.cfg.ChatPath)
	assert.Equal(t, "/api/text", c.cfg.TextPath)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
}

// ---------------------------------------------------------------------------
// Chat completion
// ---------------------------------------------------------------------------

func TestComplete_Chat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(successBody("Hello!"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())
	temp := 0.2
	resp, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{Temperature: &temp, Stop: []string{"END"}}))

	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.Raw)

	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, []any{"END"}, gotBody["stop"])
}

func TestComplete_UnsetOptionsStayOffTheWire(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	_, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{}))
	require.NoError(t, err)

	for _, key := range []string{"temperature", "max_tokens", "top_p", "frequency_penalty", "presence_penalty", "stop", "stream"} {
		assert.NotContains(t, gotBody, key)
	}
}

// ---------------------------------------------------------------------------
// Text completion
// ---------------------------------------------------------------------------

func TestComplete_Text(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-2",
			"model": "text-model",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "length", "text": "continuation"},
			},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 7, "total_tokens": 10},
		})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	resp, err := c.Complete(context.Background(), &llm.RequestDescriptor{
		Mode:   llm.ModeText,
		Model:  "text-model",
		Prompt: "Once upon a time",
	})

	require.NoError(t, err)
	assert.Equal(t, "/v1/completions", gotPath)
	assert.Equal(t, "Once upon a time", gotBody["prompt"])
	assert.NotContains(t, gotBody, "messages")
	assert.Equal(t, "continuation", resp.Content)
	assert.Equal(t, "length", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

func TestComplete_RemoteErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode llm.ErrorCode
		wantMsg  string
	}{
		{
			name:     "401 maps to auth failed",
			status:   401,
			body:     `{"error":{"message":"Incorrect API key provided"}}`,
			wantCode: llm.ErrAuthFailed,
			wantMsg:  "Authentication failed. Check the API key.",
		},
		{
			name:     "429 maps to rate limited",
			status:   429,
			body:     `{"error":{"message":"Rate limit reached"}}`,
			wantCode: llm.ErrRateLimited,
			wantMsg:  "Rate limit exceeded. Retry later.",
		},
		{
			name:     "400 keeps envelope message",
			status:   400,
			body:     `{"error":{"message":"invalid temperature","type":"invalid_request_error"}}`,
			wantCode: llm.ErrBadRequest,
			wantMsg:  "Bad request: invalid temperature (type: invalid_request_error)",
		},
		{
			name:     "500 maps to remote server error",
			status:   500,
			body:     `{"error":{"message":"boom"}}`,
			wantCode: llm.ErrRemoteServer,
			wantMsg:  "Remote service error. Retry later.",
		},
		{
			name:     "unmapped status keeps raw body",
			status:   999,
			body:     `backend exploded`,
			wantCode: llm.ErrRemote,
			wantMsg:  "Remote API error: backend exploded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
			_, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{}))

			var cerr *llm.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantCode, cerr.Code)
			assert.Equal(t, tt.wantMsg, cerr.Message)
			assert.Equal(t, tt.status, cerr.HTTPStatus)
		})
	}
}

func TestComplete_TransportError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", Timeout: time.Second}, zap.NewNop())
	_, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{}))

	require.Error(t, err)
	cerr := llm.Classify(err)
	assert.Equal(t, llm.ErrLocal, cerr.Code)
}

func TestComplete_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	_, err := c.Complete(ctx, chatDescriptor(llm.CompletionOptions{}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ---------------------------------------------------------------------------
// Credential override
// ---------------------------------------------------------------------------

func TestComplete_CredentialOverride(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "sk-configured"}, zap.NewNop())
	ctx := llm.WithCredentialOverride(context.Background(), llm.Credential{APIKey: "sk-per-call"})
	_, err := c.Complete(ctx, chatDescriptor(llm.CompletionOptions{}))

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-per-call", gotAuth)
}

func TestComplete_CustomHeaders(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL: server.URL,
		APIKey:  "k",
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("X-Api-Key", apiKey)
			req.Header.Set("Content-Type", "application/json")
		},
	}, zap.NewNop())
	_, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{}))

	require.NoError(t, err)
	assert.Equal(t, "k", gotHeader)
}

// ---------------------------------------------------------------------------
// Streaming collection
// ---------------------------------------------------------------------------

func TestComplete_StreamCollectsAllChunks(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		chunks := []string{
			`data: {"id":"s1","model":"test-model","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
			`data: {"id":"s1","model":"test-model","choices":[{"index":0,"delta":{"content":"lo!"}}]}`,
			`data: {"id":"s1","model":"test-model","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`,
			`data: [DONE]`,
		}
		for _, chunk := range chunks {
			w.Write([]byte(chunk + "\n\n"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	resp, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{Stream: true}))

	require.NoError(t, err)
	assert.Equal(t, true, gotBody["stream"])
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "s1", resp.ID)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestComplete_StreamRemoteErrorStillClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	_, err := c.Complete(context.Background(), chatDescriptor(llm.CompletionOptions{Stream: true}))

	var cerr *llm.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, llm.ErrRateLimited, cerr.Code)
}
