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
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/infradocs/assemble"
	"github.com/poiesic/infradocs/cleaning"
	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/extract"
	"github.com/poiesic/infradocs/tagging"
)

// Stats summarizes one processor's run.
type Stats struct {
	Processed    int
	Skipped      int
	FallbackUsed bool
}

// Processor runs the four stages for one entity type. Entity failures are
// isolated: a broken entity is logged, counted as skipped and excluded from
// output, and the run continues.
type Processor struct {
	entityType   core.EntityType
	rules        *cleaning.RuleSet
	batcher      *tagging.Batcher
	writer       *assemble.Writer
	intermediate *assemble.IntermediateWriter
	pool         *ants.Pool
	logger       *slog.Logger
}

// stageResult carries one entity through the stage pipeline. Results are
// indexed by input position so output order never depends on completion
// order.
type stageResult struct {
	id      string
	cleaned map[string]any
	props   core.Properties
	rels    []core.Relationship
	err     error
}

// NewProcessor creates a processor. pool may be nil for sequential
// processing; it is owned by the orchestrator, never released here.
func NewProcessor(entityType core.EntityType, rules *cleaning.RuleSet, batcher *tagging.Batcher,
	writer *assemble.Writer, intermediate *assemble.IntermediateWriter, pool *ants.Pool) (*Processor, error) {
	if err := core.ValidateEntityType(entityType); err != nil {
		return nil, err
	}
	if batcher == nil {
		return nil, fmt.Errorf("batcher is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}

	return &Processor{
		entityType:   entityType,
		rules:        rules,
		batcher:      batcher,
		writer:       writer,
		intermediate: intermediate,
		pool:         pool,
		logger:       slog.Default().With("component", "processor", "entity_type", entityType),
	}, nil
}

// Run processes the entities of this processor's type and writes the
// resulting documents. Cleaning and extraction fan out over the pool;
// tagging is batched; assembly and the canonical write happen in input
// order. A canonical write failure is fatal for the type.
func (p *Processor) Run(ctx context.Context, entities []*core.RawEntity) (Stats, error) {
	stats := Stats{}
	if len(entities) == 0 {
		return stats, nil
	}

	results := p.cleanAndExtract(ctx, entities)

	// Batch-tag the survivors.
	requests := make([]tagging.Request, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			continue
		}
		requests = append(requests, tagging.Request{
			EntityID:   r.id,
			EntityType: p.entityType,
			Properties: r.props,
		})
	}
	tagSets := p.batcher.Tag(ctx, requests)
	stats.FallbackUsed = p.batcher.FallbackUsed()

	for i, r := range results {
		if r.err != nil {
			p.logger.Warn("skipping entity", "id", r.id, "err", r.err)
			stats.Skipped++
			continue
		}

		doc, err := assemble.Assemble(r.id, entities[i], r.cleaned, r.props, r.rels, tagSets[r.id])
		if err != nil {
			p.logger.Warn("skipping entity", "id", r.id, "err", err)
			stats.Skipped++
			continue
		}

		if err := p.writer.WriteDocument(doc); err != nil {
			return stats, fmt.Errorf("writing %s documents: %w", p.entityType, err)
		}
		stats.Processed++

		if p.intermediate != nil {
			p.intermediate.Write(r.id, map[string]any{
				"cleaned":       r.cleaned,
				"properties":    r.props,
				"relationships": r.rels,
				"tags":          tagSets[r.id],
			})
		}
	}

	p.logger.Info("processor complete", "processed", stats.Processed, "skipped", stats.Skipped,
		"fallback_used", stats.FallbackUsed)
	return stats, nil
}

// cleanAndExtract runs the first two stages for every entity. With a pool
// the work fans out and joins here; a cancelled context stops dispatching
// but lets in-flight entities finish.
func (p *Processor) cleanAndExtract(ctx context.Context, entities []*core.RawEntity) []stageResult {
	results := make([]stageResult, len(entities))

	process := func(i int) {
		entity := entities[i]
		results[i].id = core.DocumentID(entity.Type, entity.System, entity.Name)

		defer func() {
			if r := recover(); r != nil {
				results[i].err = fmt.Errorf("stage panic: %v", r)
			}
		}()

		cleaned := cleaning.Clean(entity.Data, p.rules)
		props, rels, err := extract.Extract(entity, cleaned)
		if err != nil {
			results[i].err = err
			return
		}
		results[i].cleaned = cleaned
		results[i].props = props
		results[i].rels = rels
	}

	if p.pool == nil {
		for i := range entities {
			if ctx.Err() != nil {
				p.markCancelled(results, i, ctx)
				break
			}
			process(i)
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range entities {
		if ctx.Err() != nil {
			p.markCancelled(results, i, ctx)
			break
		}

		wg.Add(1)
		i := i
		if err := p.pool.Submit(func() {
			defer wg.Done()
			process(i)
		}); err != nil {
			wg.Done()
			results[i].err = err
		}
	}
	wg.Wait()
	return results
}

func (p *Processor) markCancelled(results []stageResult, from int, ctx context.Context) {
	for i := from; i < len(results); i++ {
		results[i].err = ctx.Err()
	}
}
