// Package config loads the adapter configuration: endpoint address, model
// catalog, local sampling fallbacks and batch policy defaults.
//
// Precedence: defaults, then YAML file, then environment variables with the
// BATCHFLOW_ prefix. The model catalog is static reference data injected into
// the host; the adapter treats model identifiers as opaque strings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete adapter configuration.
type Config struct {
	// Endpoint configures the OpenAI-compatible backend.
	Endpoint EndpointConfig `yaml:"endpoint"`

	// Models is the fixed catalog offered to callers.
	Models []ModelInfo `yaml:"models"`

	// Defaults optionally fills unset sampling options at build time.
	// When disabled, unset fields stay off the wire and the endpoint's own
	// defaults apply.
	Defaults DefaultsConfig `yaml:"defaults"`

	// Batch holds executor policy defaults.
	Batch BatchConfig `yaml:"batch"`
}

// EndpointConfig locates and authenticates the completion endpoint.
type EndpointConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	ChatPath string        `yaml:"chat_path"`
	TextPath string        `yaml:"text_path"`
}

// UnmarshalYAML accepts the timeout as a duration string ("30s"). Fields
// absent from the document keep their current values, so YAML overlays the
// built-in defaults instead of replacing them.
func (e *EndpointConfig) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
		ChatPath string `yaml:"chat_path"`
		TextPath string `yaml:"text_path"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	if aux.BaseURL != "" {
		e.BaseURL = aux.BaseURL
	}
	if aux.APIKey != "" {
		e.APIKey = aux.APIKey
	}
	if aux.ChatPath != "" {
		e.ChatPath = aux.ChatPath
	}
	if aux.TextPath != "" {
		e.TextPath = aux.TextPath
	}
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("endpoint.timeout: %w", err)
		}
		e.Timeout = d
	}
	return nil
}

// ModelInfo is one catalog entry. Purely descriptive reference data.
type ModelInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	MaxTokens   int    `yaml:"max_tokens,omitempty"`
}

// DefaultsConfig holds the opt-in local fallbacks for unset option fields.
// Enabled false (the shipped default) defers all defaulting to the endpoint.
type DefaultsConfig struct {
	Enabled          bool    `yaml:"enabled"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
}

// BatchConfig holds executor policy defaults.
type BatchConfig struct {
	ContinueOnFailure bool    `yaml:"continue_on_failure"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL:  "https://api.openai.com",
			Timeout:  30 * time.Second,
			ChatPath: "/v1/chat/completions",
			TextPath: "/v1/completions",
		},
		Defaults: DefaultsConfig{
			Enabled:          false,
			Temperature:      0.7,
			MaxTokens:        1000,
			TopP:             1,
			FrequencyPenalty: 0,
			PresencePenalty:  0,
		},
		Batch: BatchConfig{
			ContinueOnFailure: false,
			Concurrency:       1,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays BATCHFLOW_* environment variables. The API key override
// exists so secrets never have to live in the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BATCHFLOW_BASE_URL"); v != "" {
		c.Endpoint.BaseURL = v
	}
	if v := os.Getenv("BATCHFLOW_API_KEY"); v != "" {
		c.Endpoint.APIKey = v
	}
	if v := os.Getenv("BATCHFLOW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Endpoint.Timeout = d
		}
	}
	if v := os.Getenv("BATCHFLOW_CONTINUE_ON_FAILURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Batch.ContinueOnFailure = b
		}
	}
	if v := os.Getenv("BATCHFLOW_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("BATCHFLOW_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Batch.RequestsPerSecond = f
		}
	}
}

// Validate rejects configurations the adapter cannot run with.
func (c *Config) Validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("config: endpoint.base_url must not be empty")
	}
	if c.Endpoint.Timeout < 0 {
		return fmt.Errorf("config: endpoint.timeout must not be negative")
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("config: batch.concurrency must not be negative")
	}
	if c.Batch.RequestsPerSecond < 0 {
		return fmt.Errorf("config: batch.requests_per_second must not be negative")
	}
	return nil
}

// HasModel reports whether name is in the catalog. An empty catalog accepts
// any model name.
func (c *Config) HasModel(name string) bool {
	if len(c.Models) == 0 {
		return true
	}
	for _, m := range c.Models {
		if m.Name == name {
			return true
		}
	}
	return false
}
