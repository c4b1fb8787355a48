package config

import "github.com/BaSui01/batchflow/llm"

// BuilderDefaults converts the configured fallbacks into the builder's
// Defaults value. With Enabled false it returns the zero value, leaving all
// defaulting to the endpoint.
func (c *Config) BuilderDefaults() llm.Defaults {
	if !c.Defaults.Enabled {
		return llm.Defaults{}
	}
	temp := c.Defaults.Temperature
	maxTokens := c.Defaults.MaxTokens
	topP := c.Defaults.TopP
	freq := c.Defaults.FrequencyPenalty
	pres := c.Defaults.PresencePenalty
	return llm.Defaults{
		Temperature:      &temp,
		MaxTokens:        &maxTokens,
		TopP:             &topP,
		FrequencyPenalty: &freq,
		PresencePenalty:  &pres,
	}
}
