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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/infradocs/assemble"
	"github.com/poiesic/infradocs/cleaning"
	"github.com/poiesic/infradocs/config"
	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/history"
	"github.com/poiesic/infradocs/tagging"
)

// Orchestrator discovers enabled processors from configuration, runs them
// over a shared worker pool and writes the run's artifacts. It is the only
// component that creates or releases pools.
type Orchestrator struct {
	cfg     *config.Config
	backend tagging.Backend
	store   *history.Store
	pool    *ants.Pool
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithBackend sets the tagging backend shared by all processors whose
// configuration enables LLM tagging. No backend means rule-only tagging.
func WithBackend(backend tagging.Backend) Option {
	return func(o *Orchestrator) error {
		o.backend = backend
		return nil
	}
}

// WithHistoryStore records run metadata in the given store after each run.
func WithHistoryStore(store *history.Store) Option {
	return func(o *Orchestrator) error {
		o.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator for the given configuration.
func NewOrchestrator(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.Default().With("component", "orchestrator"),
	}

	if cfg.ParallelProcessing {
		pool, err := ants.NewPool(cfg.MaxWorkers)
		if err != nil {
			return nil, err
		}
		o.pool = pool
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}
	return o, nil
}

// Run executes one full pipeline pass: load snapshots, run every enabled
// processor, then write the canonical streams' run metadata and record the
// run. No partial run metadata is written if any processor fails.
func (o *Orchestrator) Run(ctx context.Context) (*core.RunMetadata, error) {
	started := time.Now()

	set, err := LoadSnapshots(o.cfg.InputDirectory)
	if err != nil {
		return nil, err
	}

	writer, err := assemble.NewWriter(o.cfg.OutputDirectory)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	intermediate := assemble.NewIntermediateWriter(writer.Dir(), o.cfg.SaveIntermediate)

	o.logger.Info("run starting",
		"entities", set.Count(),
		"snapshots", len(set.Files),
		"output", writer.Dir(),
		"parallel", o.cfg.ParallelProcessing)

	meta := &core.RunMetadata{
		RunID:              uuid.NewString(),
		Timestamp:          started.UTC(),
		ParallelProcessing: o.cfg.ParallelProcessing,
		LLMEnabled:         o.backend != nil && o.cfg.LLMEnabled(),
		SnapshotDigest:     set.Digest,
		OutputDirectory:    writer.Dir(),
		EntityTypes:        []string{},
	}

	for _, entityType := range o.cfg.EnabledTypes() {
		entities := set.Entities[entityType]
		if len(entities) == 0 {
			continue
		}

		processor, err := o.buildProcessor(entityType, writer, intermediate)
		if err != nil {
			return nil, fmt.Errorf("building %s processor: %w", entityType, err)
		}

		stats, err := processor.Run(ctx, entities)
		if err != nil {
			return nil, err
		}

		meta.EntitiesCount += stats.Processed
		meta.SkippedEntities += stats.Skipped
		meta.FallbackUsed = meta.FallbackUsed || stats.FallbackUsed
		if stats.Processed > 0 {
			meta.EntityTypes = append(meta.EntityTypes, string(entityType))
		}
	}

	meta.ElapsedMillis = time.Since(started).Milliseconds()

	if err := writer.WriteRunMetadata(meta); err != nil {
		return nil, err
	}

	// Close is idempotent; the deferred call covers error paths while this
	// one surfaces flush failures on the canonical streams.
	if err := writer.Close(); err != nil {
		return nil, err
	}

	if o.store != nil {
		if err := o.store.Record(meta); err != nil {
			// History is observability, not output: failure to record
			// does not fail a completed run.
			o.logger.Warn("failed to record run history", "err", err)
		}
	}

	o.logger.Info("run complete",
		"run_id", meta.RunID,
		"processed", meta.EntitiesCount,
		"skipped", meta.SkippedEntities,
		"fallback_used", meta.FallbackUsed,
		"elapsed_ms", meta.ElapsedMillis)
	return meta, nil
}

// Release releases the worker pool. The orchestrator should not be used
// after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

func (o *Orchestrator) buildProcessor(entityType core.EntityType, writer *assemble.Writer,
	intermediate *assemble.IntermediateWriter) (*Processor, error) {
	procCfg := o.cfg.Processors[string(entityType)]

	rules := cleaning.DefaultRules(entityType)
	if len(procCfg.CleaningRules) > 0 {
		custom, err := cleaning.NewRuleSet(procCfg.CleaningRules)
		if err != nil {
			return nil, err
		}
		rules = rules.Merge(custom)
	}

	backend := o.backend
	if !procCfg.EnableLLMTagging {
		backend = nil
	}
	taggingCfg := o.cfg.TaggingConfig()
	if backend == nil {
		taggingCfg.Type = tagging.BackendRules
	}
	batcher, err := tagging.NewBatcher(backend, taggingCfg)
	if err != nil {
		return nil, err
	}

	return NewProcessor(entityType, rules, batcher, writer, intermediate, o.pool)
}
