package llm

import (
	"strings"

	"github.com/BaSui01/batchflow/internal/cast"
)

// CompletionOptions is the normalized, batch-wide set of sampling controls.
// Every field is optional: a nil pointer (or empty Stop slice) means the field
// is omitted from the outgoing request and the endpoint's own default applies.
// Values are not range-checked locally; the remote service is authoritative on
// valid ranges and rejects bad values as a 400.
type CompletionOptions struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
}

// Clone returns a deep copy so a descriptor never aliases the batch-wide
// options value through shared pointers.
func (o CompletionOptions) Clone() CompletionOptions {
	out := o
	out.Temperature = cloneFloat(o.Temperature)
	out.MaxTokens = cloneInt(o.MaxTokens)
	out.TopP = cloneFloat(o.TopP)
	out.FrequencyPenalty = cloneFloat(o.FrequencyPenalty)
	out.PresencePenalty = cloneFloat(o.PresencePenalty)
	if len(o.Stop) > 0 {
		out.Stop = append([]string(nil), o.Stop...)
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NormalizeOptions converts a loosely-typed advanced-options bag into strict
// CompletionOptions. Only recognized keys are copied; unknown keys are ignored
// so new host fields never break older adapters. The function always succeeds:
// values that cannot be coerced to the expected type are treated as absent.
//
// Recognized keys: temperature, max_tokens, top_p, frequency_penalty,
// presence_penalty, stop (or stop_sequences), stream.
func NormalizeOptions(raw map[string]any) CompletionOptions {
	var opts CompletionOptions
	if raw == nil {
		return opts
	}

	if v, ok := raw["temperature"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			opts.Temperature = &f
		}
	}
	if v, ok := raw["max_tokens"]; ok {
		if n, ok := cast.ToInt(v); ok {
			opts.MaxTokens = &n
		}
	}
	if v, ok := raw["top_p"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			opts.TopP = &f
		}
	}
	if v, ok := raw["frequency_penalty"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			opts.FrequencyPenalty = &f
		}
	}
	if v, ok := raw["presence_penalty"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			opts.PresencePenalty = &f
		}
	}
	if v, ok := raw["stop"]; ok {
		opts.Stop = normalizeStop(v)
	} else if v, ok := raw["stop_sequences"]; ok {
		opts.Stop = normalizeStop(v)
	}
	if v, ok := raw["stream"]; ok {
		if b, ok := cast.ToBool(v); ok {
			opts.Stream = b
		}
	}
	return opts
}

// normalizeStop parses stop sequences from either a comma-separated string or
// a string slice: pieces are trimmed, empties dropped, order preserved.
// Absent or empty input yields nil so the field stays off the wire instead of
// being sent as [].
func normalizeStop(v any) []string {
	var pieces []string
	if s, ok := cast.ToString(v); ok {
		pieces = strings.Split(s, ",")
	} else if ss, ok := cast.ToStringSlice(v); ok {
		pieces = ss
	} else {
		return nil
	}

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
