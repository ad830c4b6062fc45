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
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/infradocs/core"
)

// batchState tracks the lifecycle of one tagging batch:
// pending -> backend called -> {parsed ok | parse failed | backend failed |
// timed out} -> tagged. Any non-ok terminal state routes every entity of the
// batch through the rule fallback individually.
type batchState int

const (
	statePending batchState = iota
	stateBackendCalled
	stateParsedOK
	stateParseFailed
	stateBackendFailed
	stateTimedOut
	stateTagged
)

func (s batchState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateBackendCalled:
		return "backend_called"
	case stateParsedOK:
		return "parsed_ok"
	case stateParseFailed:
		return "parse_failed"
	case stateBackendFailed:
		return "backend_failed"
	case stateTimedOut:
		return "timed_out"
	case stateTagged:
		return "tagged"
	}
	return "unknown"
}

// Batcher drives the tagging of entity batches against a backend with a
// guaranteed deterministic fallback. A nil backend means rule-only mode.
//
// When a batch partially parses, backend tags are treated as authoritative
// for the entities they cover and only the uncovered entities fall back to
// rule tagging. The chosen source is exposed on every TagSet so operators
// can audit it.
type Batcher struct {
	backend      Backend
	rules        *RuleTagger
	batchSize    int
	timeout      time.Duration
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
	fallbackUsed atomic.Bool
}

// NewBatcher creates a batcher over the given backend. backend may be nil to
// force rule-based tagging (this is not counted as degradation).
func NewBatcher(backend Backend, cfg *Config) (*Batcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Batcher{
		backend:    backend,
		rules:      NewRuleTagger(),
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     slog.Default().With("component", "tagging-batcher"),
	}, nil
}

// Tag produces the tag set for every requested entity, keyed by entity id.
// Output is always non-empty per entity: the rule fallback guarantees at
// least a generic category tag when everything else fails.
func (b *Batcher) Tag(ctx context.Context, reqs []Request) map[string]core.TagSet {
	result := make(map[string]core.TagSet, len(reqs))

	for start := 0; start < len(reqs); start += b.batchSize {
		end := min(start+b.batchSize, len(reqs))
		b.tagBatch(ctx, reqs[start:end], result)
	}

	return result
}

// FallbackUsed reports whether any entity was tagged by the rule fallback
// because the backend failed, timed out, or returned an unusable response.
func (b *Batcher) FallbackUsed() bool {
	return b.fallbackUsed.Load()
}

func (b *Batcher) tagBatch(ctx context.Context, batch []Request, result map[string]core.TagSet) {
	if b.backend == nil {
		for _, req := range batch {
			result[req.EntityID] = core.TagSet{Tags: b.rules.Tags(req), Source: core.TagSourceRules}
		}
		return
	}

	responses, state := b.callBackend(ctx, batch)
	if state != stateParsedOK {
		b.logger.Warn("tagging batch degraded to rule fallback",
			"state", state.String(), "entities", len(batch))
		b.fallbackUsed.Store(true)
		for _, req := range batch {
			result[req.EntityID] = core.TagSet{Tags: b.rules.Tags(req), Source: core.TagSourceRules}
		}
		return
	}

	byID := make(map[string][]string, len(responses))
	for _, resp := range responses {
		byID[resp.EntityID] = resp.Tags
	}

	for _, req := range batch {
		backendTags := byID[req.EntityID]
		// Backend tags are never the sole source of identity-bearing
		// tags: the generic category and technology tags always join.
		merged := append([]string{}, backendTags...)
		merged = append(merged, genericTags[req.EntityType]...)
		if tech := technologyTag(req.Properties); tech != "" {
			merged = append(merged, tech)
		}
		tags := NormalizeTags(merged)

		if len(backendTags) == 0 || len(tags) == 0 {
			// Entity missing from an otherwise parsed response falls
			// back individually.
			b.fallbackUsed.Store(true)
			result[req.EntityID] = core.TagSet{Tags: b.rules.Tags(req), Source: core.TagSourceRules}
			continue
		}
		result[req.EntityID] = core.TagSet{Tags: tags, Source: core.TagSourceBackend}
	}
}

func (b *Batcher) callBackend(ctx context.Context, batch []Request) ([]Response, batchState) {
	var responses []Response
	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		var callErr error
		responses, callErr = b.backend.GenerateTags(callCtx, batch)
		return callErr
	}, b.maxRetries, b.retryDelay)

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, stateTimedOut
		case errors.Is(err, ErrParseFailed):
			return nil, stateParseFailed
		default:
			return nil, stateBackendFailed
		}
	}
	return responses, stateParsedOK
}
