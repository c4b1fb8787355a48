package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BaSui01/batchflow/llm"
)

// Wire types for the OpenAI-compatible chat and text completion operations.
// Optional sampling fields are pointers so an unset option stays off the wire
// instead of being sent as a zero value.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
}

type textRequest struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
}

type wireChoice struct {
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
	// Message is set on chat responses, Text on text responses,
	// Delta on streaming chat chunks.
	Message *chatMessage `json:"message,omitempty"`
	Delta   *chatMessage `json:"delta,omitempty"`
	Text    string       `json:"text,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
}

// encodeRequest maps a descriptor onto the wire shape for its mode.
func encodeRequest(req *llm.RequestDescriptor, stream bool) any {
	o := req.Options
	if req.Mode == llm.ModeText {
		return textRequest{
			Model:            req.Model,
			Prompt:           req.Prompt,
			Temperature:      o.Temperature,
			MaxTokens:        o.MaxTokens,
			TopP:             o.TopP,
			FrequencyPenalty: o.FrequencyPenalty,
			PresencePenalty:  o.PresencePenalty,
			Stop:             o.Stop,
			Stream:           stream,
		}
	}
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{
		Model:            req.Model,
		Messages:         msgs,
		Temperature:      o.Temperature,
		MaxTokens:        o.MaxTokens,
		TopP:             o.TopP,
		FrequencyPenalty: o.FrequencyPenalty,
		PresencePenalty:  o.PresencePenalty,
		Stop:             o.Stop,
		Stream:           stream,
	}
}

// decodeResponse normalizes a unary wire response. The first choice carries
// the generated content: message.content for chat, text for text mode.
func decodeResponse(raw []byte) (*llm.CompletionResponse, error) {
	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	out := &llm.CompletionResponse{
		ID:    wr.ID,
		Model: wr.Model,
		Raw:   json.RawMessage(raw),
	}
	if len(wr.Choices) > 0 {
		c := wr.Choices[0]
		out.FinishReason = c.FinishReason
		if c.Message != nil {
			out.Content = c.Message.Content
		} else {
			out.Content = c.Text
		}
	}
	if wr.Usage != nil {
		out.Usage = llm.Usage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		}
	}
	return out, nil
}

// readErrorMessage extracts the diagnostic message from an error response
// body. Tries the OpenAI error envelope first, falls back to raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}

	return string(data)
}
