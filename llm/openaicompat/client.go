package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/batchflow/internal/tlsutil"
	"github.com/BaSui01/batchflow/llm"
)

// Config holds the configuration for an OpenAI-compatible completion client.
type Config struct {
	// BaseURL is the base URL of the endpoint (e.g. "https://api.openai.com").
	BaseURL string

	// APIKey authenticates requests via "Authorization: Bearer <key>".
	// A per-call override in the context takes precedence.
	APIKey string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// ChatPath is the chat completions path. Defaults to "/v1/chat/completions".
	ChatPath string

	// TextPath is the text completions path. Defaults to "/v1/completions".
	TextPath string

	// BuildHeaders optionally replaces the default bearer-token headers.
	BuildHeaders func(req *http.Request, apiKey string)
}

// Client calls an OpenAI-compatible inference endpoint. It implements
// llm.Client and performs exactly one remote call per Complete invocation:
// no retries, no caching, no request coalescing.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New creates a client with the given config.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = "/v1/chat/completions"
	}
	if cfg.TextPath == "" {
		cfg.TextPath = "/v1/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   tlsutil.SecureHTTPClient(timeout),
		logger: logger,
	}
}

var _ llm.Client = (*Client)(nil)

// Complete dispatches one completion call for the descriptor's mode.
// With Options.Stream set, the SSE stream is collected into a single
// response before returning.
func (c *Client) Complete(ctx context.Context, req *llm.RequestDescriptor) (*llm.CompletionResponse, error) {
	stream := req.Options.Stream && req.Mode == llm.ModeChat

	resp, err := c.post(ctx, req, stream)
	if err != nil {
		return nil, err
	}

	if stream {
		defer resp.Body.Close()
		return c.collectStream(ctx, resp.Body)
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	out, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("completion ok",
		zap.String("mode", string(req.Mode)),
		zap.String("model", out.Model),
		zap.String("finish_reason", out.FinishReason),
		zap.Int("total_tokens", out.Usage.TotalTokens))
	return out, nil
}

// post sends the encoded request and returns the HTTP response with a 2xx
// status. Any >=400 status is classified and returned as *llm.Error.
func (c *Client) post(ctx context.Context, req *llm.RequestDescriptor, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(encodeRequest(req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Mode), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	c.buildHeaders(httpReq, c.resolveAPIKey(ctx))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Cancellation mid-transport surfaces as the context's own error.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("completion transport: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		resp.Body.Close()
		cerr := llm.MapHTTPError(resp.StatusCode, msg)
		c.logger.Debug("completion failed",
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(cerr.Code)))
		return nil, cerr
	}
	return resp, nil
}

// collectStream reads an SSE chat stream to completion and concatenates the
// content deltas into one final response. The last chunk's usage counters and
// finish reason win when present.
func (c *Client) collectStream(ctx context.Context, body io.Reader) (*llm.CompletionResponse, error) {
	out := &llm.CompletionResponse{}
	var content strings.Builder

	reader := bufio.NewReader(body)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read completion stream: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var wr wireResponse
		if err := json.Unmarshal([]byte(data), &wr); err != nil {
			return nil, fmt.Errorf("decode stream chunk: %w", err)
		}
		if wr.ID != "" {
			out.ID = wr.ID
		}
		if wr.Model != "" {
			out.Model = wr.Model
		}
		if wr.Usage != nil {
			out.Usage = llm.Usage{
				PromptTokens:     wr.Usage.PromptTokens,
				CompletionTokens: wr.Usage.CompletionTokens,
				TotalTokens:      wr.Usage.TotalTokens,
			}
		}
		for _, choice := range wr.Choices {
			if choice.Delta != nil {
				content.WriteString(choice.Delta.Content)
			}
			if choice.FinishReason != "" {
				out.FinishReason = choice.FinishReason
			}
		}
	}

	out.Content = content.String()
	return out, nil
}

// resolveAPIKey returns the API key, checking for a context override first.
func (c *Client) resolveAPIKey(ctx context.Context) string {
	if cred, ok := llm.CredentialOverrideFromContext(ctx); ok {
		if strings.TrimSpace(cred.APIKey) != "" {
			return strings.TrimSpace(cred.APIKey)
		}
	}
	return c.cfg.APIKey
}

func (c *Client) buildHeaders(req *http.Request, apiKey string) {
	if c.cfg.BuildHeaders != nil {
		c.cfg.BuildHeaders(req, apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) endpoint(mode llm.Mode) string {
	path := c.cfg.ChatPath
	if mode == llm.ModeText {
		path = c.cfg.TextPath
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}
