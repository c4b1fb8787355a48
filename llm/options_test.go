package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOptions_Empty(t *testing.T) {
	assert.Equal(t, CompletionOptions{}, NormalizeOptions(nil))
	assert.Equal(t, CompletionOptions{}, NormalizeOptions(map[string]any{}))
}

func TestNormalizeOptions_RecognizedKeys(t *testing.T) {
	opts := NormalizeOptions(map[string]any{
		"temperature":       0.3,
		"max_tokens":        512,
		"top_p":             0.9,
		"frequency_penalty": 0.5,
		"presence_penalty":  -0.5,
		"stream":            true,
	})

	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.3, *opts.Temperature)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 512, *opts.MaxTokens)
	require.NotNil(t, opts.TopP)
	assert.Equal(t, 0.9, *opts.TopP)
	require.NotNil(t, opts.FrequencyPenalty)
	assert.Equal(t, 0.5, *opts.FrequencyPenalty)
	require.NotNil(t, opts.PresencePenalty)
	assert.Equal(t, -0.5, *opts.PresencePenalty)
	assert.True(t, opts.Stream)
}

func TestNormalizeOptions_NumericCoercion(t *testing.T) {
	// Options bags decoded from JSON carry float64 for every number.
	opts := NormalizeOptions(map[string]any{
		"max_tokens":  float64(1000),
		"temperature": 1,
	})
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 1000, *opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 1.0, *opts.Temperature)
}

func TestNormalizeOptions_UnknownKeysIgnored(t *testing.T) {
	opts := NormalizeOptions(map[string]any{
		"temperature":     0.7,
		"reasoning_mode":  "thinking",
		"not_an_option":   42,
		"response_format": map[string]any{"type": "json_object"},
	})
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.7, *opts.Temperature)
	assert.Nil(t, opts.MaxTokens)
}

func TestNormalizeOptions_MistypedValuesTreatedAsAbsent(t *testing.T) {
	opts := NormalizeOptions(map[string]any{
		"temperature": "hot",
		"max_tokens":  "many",
		"stream":      "yes",
	})
	assert.Nil(t, opts.Temperature)
	assert.Nil(t, opts.MaxTokens)
	assert.False(t, opts.Stream)
}

func TestNormalizeOptions_StopSequences(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"comma separated with noise", "a, b ,,c", []string{"a", "b", "c"}},
		{"single value", "END", []string{"END"}},
		{"empty string", "", nil},
		{"only separators", " , ,", nil},
		{"string slice", []string{" x ", "", "y"}, []string{"x", "y"}},
		{"any slice", []any{"one", "two"}, []string{"one", "two"}},
		{"wrong type", 17, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NormalizeOptions(map[string]any{"stop": tt.raw})
			assert.Equal(t, tt.want, opts.Stop)
		})
	}
}

func TestNormalizeOptions_StopSequencesAlias(t *testing.T) {
	opts := NormalizeOptions(map[string]any{"stop_sequences": "a,b"})
	assert.Equal(t, []string{"a", "b"}, opts.Stop)

	// "stop" wins when both are present.
	opts = NormalizeOptions(map[string]any{"stop": "x", "stop_sequences": "y"})
	assert.Equal(t, []string{"x"}, opts.Stop)
}

func TestCompletionOptions_Clone(t *testing.T) {
	temp := 0.5
	orig := CompletionOptions{Temperature: &temp, Stop: []string{"a"}}
	cl := orig.Clone()

	*cl.Temperature = 1.5
	cl.Stop[0] = "b"

	assert.Equal(t, 0.5, *orig.Temperature)
	assert.Equal(t, "a", orig.Stop[0])
}
