package llm

import (
	"time"
)

// Config holds configuration for creating an LLM adapter.
// It is provider-agnostic; the Dialect field selects the provider mapping.
type Config struct {
	// Name identifies this adapter instance (e.g., "primary-llm").
	Name string `yaml:"name" mapstructure:"name"`

	// Dialect selects the provider mapping ("ollama", "openai").
	Dialect string `yaml:"dialect" mapstructure:"dialect"`

	// BaseURL is the provider's API base URL (e.g., "http://localhost:11434").
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as a Bearer token when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Model is the default model to use.
	Model string `yaml:"model" mapstructure:"model"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default maximum tokens for responses. 0 means provider default.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout for HTTP requests. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are additional HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Resilience guards completions with a circuit breaker and a
	// concurrency cap.
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ResilienceConfig tunes the guards around a provider.
type ResilienceConfig struct {
	// FailureThreshold consecutive upstream failures open the circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	// Cooldown is how long an open circuit rejects calls.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// MaxConcurrent caps in-flight completions.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a completion may queue for a slot.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults sets default values for unset config fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect + "-llm"
	}
	r := &c.Resilience
	if r.FailureThreshold <= 0 {
		r.FailureThreshold = 5
	}
	if r.Cooldown <= 0 {
		r.Cooldown = 30 * time.Second
	}
	if r.MaxConcurrent <= 0 {
		r.MaxConcurrent = 16
	}
	if r.MaxWait <= 0 {
		r.MaxWait = 30 * time.Second
	}
}
