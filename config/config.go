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


// Package config loads and validates the declarative run configuration.
//
// Configuration is loaded once at run start and passed by value into the
// orchestrator and stage constructors; no component performs ambient
// configuration lookup. A configuration error is fatal and aborts the run
// before any work is dispatched.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/tagging"
)

// ErrInvalidConfig indicates the configuration is malformed or incomplete.
var ErrInvalidConfig = errors.New("invalid configuration")

// LLM configures the semantic tagging backend.
type LLM struct {
	// Type selects the backend: "openai", "ollama" or "rules".
	Type string `yaml:"type" validate:"omitempty,oneof=openai ollama rules"`

	// Host is the backend base URL. Required unless Type is "rules".
	Host string `yaml:"host" validate:"omitempty,url"`

	// Model is the model identifier used for tagging.
	Model string `yaml:"model"`

	// Token authenticates against remote APIs.
	Token string `yaml:"token"`

	// BatchSize is how many entities are tagged per backend call.
	BatchSize int `yaml:"batch_size" validate:"omitempty,min=1,max=50"`

	// MaxTokens bounds the backend response size.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1"`

	// Temperature is passed to the backend.
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// TimeoutSeconds bounds each backend call.
	TimeoutSeconds int `yaml:"timeout" validate:"omitempty,min=1,max=600"`
}

// Processor configures one entity-type processor.
type Processor struct {
	// Enabled includes this entity type in the run.
	Enabled bool `yaml:"enabled"`

	// EnableLLMTagging uses the configured backend; false forces
	// rule-based tagging for this type.
	EnableLLMTagging bool `yaml:"enable_llm_tagging"`

	// CleaningRules are extra volatile-field paths stripped before
	// extraction, merged with the built-in rules for the type.
	CleaningRules []string `yaml:"cleaning_rules"`
}

// Config is the full run configuration.
type Config struct {
	// InputDirectory holds the collected snapshot JSON files.
	InputDirectory string `yaml:"input_directory" validate:"required"`

	// OutputDirectory receives run-scoped output directories.
	OutputDirectory string `yaml:"output_directory" validate:"required"`

	// SchemaDirectory holds the per-type validation schemas.
	SchemaDirectory string `yaml:"schema_directory"`

	// HistoryDirectory holds the run history database.
	HistoryDirectory string `yaml:"history_directory"`

	// CollectorCommand is executed by the collect command to refresh the
	// input directory. The pipeline itself never runs collectors.
	CollectorCommand string `yaml:"collector_command"`

	// SaveIntermediate persists pre-assembly debug artifacts.
	SaveIntermediate bool `yaml:"save_intermediate"`

	// ParallelProcessing fans entities out over a worker pool; false
	// processes them sequentially in input order.
	ParallelProcessing bool `yaml:"parallel_processing"`

	// MaxWorkers bounds the worker pool. Default: 4
	MaxWorkers int `yaml:"max_workers" validate:"omitempty,min=1,max=64"`

	LLM LLM `yaml:"llm"`

	// Processors is keyed by entity type name.
	Processors map[string]Processor `yaml:"processors"`
}

// Default returns a configuration with every entity type enabled, rule-only
// tagging and sequential-safe defaults.
func Default() *Config {
	processors := make(map[string]Processor, len(core.EntityTypes))
	for _, t := range core.EntityTypes {
		processors[string(t)] = Processor{Enabled: true}
	}

	return &Config{
		InputDirectory:     "collected",
		OutputDirectory:    "output",
		SchemaDirectory:    "schemas",
		HistoryDirectory:   ".infradocs/history",
		ParallelProcessing: true,
		MaxWorkers:         4,
		LLM: LLM{
			Type:           tagging.BackendRules,
			BatchSize:      5,
			MaxTokens:      300,
			Temperature:    0.1,
			TimeoutSeconds: 30,
		},
		Processors: processors,
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies struct-level and cross-field rules, filling defaults for
// zero-valued options.
func (c *Config) Validate() error {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if c.LLM.BatchSize == 0 {
		c.LLM.BatchSize = 5
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 300
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 30
	}
	if c.LLM.Type == "" {
		c.LLM.Type = tagging.BackendRules
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for name := range c.Processors {
		if err := core.ValidateEntityType(core.EntityType(name)); err != nil {
			return fmt.Errorf("%w: processor %q: %w", ErrInvalidConfig, name, err)
		}
	}

	if c.LLM.Type != tagging.BackendRules && c.llmRequested() {
		if c.LLM.Host == "" {
			return fmt.Errorf("%w: llm.host is required for backend %q", ErrInvalidConfig, c.LLM.Type)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("%w: llm.model is required for backend %q", ErrInvalidConfig, c.LLM.Type)
		}
	}
	return nil
}

// EnabledTypes returns the enabled entity types in canonical order, so runs
// over the same configuration always process types in the same sequence.
func (c *Config) EnabledTypes() []core.EntityType {
	enabled := make([]core.EntityType, 0, len(core.EntityTypes))
	for _, t := range core.EntityTypes {
		if p, ok := c.Processors[string(t)]; ok && p.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// LLMEnabled reports whether any enabled processor uses the LLM backend.
func (c *Config) LLMEnabled() bool {
	return c.LLM.Type != tagging.BackendRules && c.llmRequested()
}

// TaggingConfig maps the llm section onto the tagging package's config.
func (c *Config) TaggingConfig() *tagging.Config {
	return tagging.NewConfig(
		tagging.WithBackendType(c.LLM.Type),
		tagging.WithHost(c.LLM.Host),
		tagging.WithModel(c.LLM.Model),
		tagging.WithToken(c.LLM.Token),
		tagging.WithBatchSize(c.LLM.BatchSize),
		tagging.WithMaxTokens(c.LLM.MaxTokens),
		tagging.WithTemperature(c.LLM.Temperature),
		tagging.WithTimeout(time.Duration(c.LLM.TimeoutSeconds)*time.Second),
	)
}

func (c *Config) llmRequested() bool {
	for _, t := range c.EnabledTypes() {
		if c.Processors[string(t)].EnableLLMTagging {
			return true
		}
	}
	return false
}
