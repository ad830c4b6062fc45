// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package tagging

import (
	"errors"
	"strings"
	"time"
)

// Backend type identifiers selectable via configuration.
const (
	BackendOpenAI = "openai" // remote OpenAI-compatible chat API
	BackendOllama = "ollama" // local Ollama server
	BackendRules  = "rules"  // deterministic rule tagging only
)

// Config holds configuration for the semantic tagging backend.
type Config struct {
	// Type selects the backend: "openai", "ollama" or "rules".
	Type string

	// Host is the base URL of the backend API.
	// Example: "http://localhost:11434" for a local Ollama server.
	Host string

	// Model is the model identifier used for tagging.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// Token authenticates against remote APIs. Local OpenAI-compatible
	// services accept any value; "none" is used when unset.
	Token string

	// BatchSize is how many entities are tagged per backend call.
	// Batching amortizes per-call latency and cost. Default: 5
	BatchSize int

	// MaxTokens bounds the backend response size. Default: 300
	MaxTokens int

	// Temperature is passed to the backend. Default: 0.1
	Temperature float64

	// Timeout bounds each backend call; on expiry the batch falls back to
	// rule tagging. Default: 30s
	Timeout time.Duration

	// MaxRetries is the number of attempts per backend call. Default: 3
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff. Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackendType selects the tagging backend.
func WithBackendType(backendType string) ConfigOption {
	return func(c *Config) {
		c.Type = backendType
	}
}

// WithHost sets the backend host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithBatchSize sets the tagging batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithToken sets the API token for remote backends.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithMaxTokens bounds the backend response size.
func WithMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

// WithRetryPolicy sets the attempt count and base backoff delay for
// backend calls.
func WithRetryPolicy(maxRetries int, retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = retryDelay
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Type:        BackendOllama,
		Host:        "http://localhost:11434",
		Model:       "qwen2.5:3b",
		Token:       "none",
		BatchSize:   5,
		MaxTokens:   300,
		Temperature: 0.1,
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		RetryDelay:  1 * time.Second,
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form.
func (c *Config) Normalize() {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Host = strings.TrimSuffix(strings.TrimSpace(c.Host), "/")
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Type {
	case BackendOpenAI, BackendOllama, BackendRules:
	default:
		return errors.New("tagging config: Type must be openai, ollama or rules")
	}
	if c.Type != BackendRules {
		if c.Host == "" {
			return errors.New("tagging config: Host is required")
		}
		if c.Model == "" {
			return errors.New("tagging config: Model is required")
		}
	}
	if c.BatchSize < 1 {
		return errors.New("tagging config: BatchSize must be at least 1")
	}
	if c.Timeout <= 0 {
		return errors.New("tagging config: Timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return errors.New("tagging config: MaxRetries must be at least 1")
	}
	return nil
}
