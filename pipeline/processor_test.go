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
	"path/filepath"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/infradocs/assemble"
	"github.com/poiesic/infradocs/cleaning"
	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/tagging"
)

func newTestProcessor(t *testing.T, pool *ants.Pool) (*Processor, *assemble.Writer) {
	t.Helper()

	writer, err := assemble.NewWriter(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	cfg := tagging.DefaultConfig()
	cfg.Type = tagging.BackendRules
	batcher, err := tagging.NewBatcher(nil, cfg)
	require.NoError(t, err)

	p, err := NewProcessor(core.EntityTypeContainer, cleaning.DefaultRules(core.EntityTypeContainer),
		batcher, writer, nil, pool)
	require.NoError(t, err)
	return p, writer
}

func containerEntity(name string) *core.RawEntity {
	return &core.RawEntity{
		Type:   core.EntityTypeContainer,
		System: "home",
		Name:   name,
		Data:   map[string]any{"name": name, "image": "busybox:latest"},
	}
}

func TestProcessorIsolatesBrokenEntity(t *testing.T) {
	p, writer := newTestProcessor(t, nil)

	entities := []*core.RawEntity{
		containerEntity("a"),
		{Type: core.EntityTypeContainer, System: "home", Name: "", Data: map[string]any{}},
		containerEntity("c"),
	}

	stats, err := p.Run(context.Background(), entities)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	require.NoError(t, writer.Close())

	docs := readDocuments(t, filepath.Join(writer.Dir(), "containers.jsonl"))
	require.Len(t, docs, 2)
	assert.Equal(t, "container_home_a", docs[0].ID)
	assert.Equal(t, "container_home_c", docs[1].ID)
}

func TestProcessorParallelPreservesInputOrder(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	p, writer := newTestProcessor(t, pool)

	entities := make([]*core.RawEntity, 0, 30)
	for i := 0; i < 30; i++ {
		entities = append(entities, containerEntity(fmt.Sprintf("svc-%02d", i)))
	}

	stats, err := p.Run(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Processed)
	require.NoError(t, writer.Close())

	docs := readDocuments(t, filepath.Join(writer.Dir(), "containers.jsonl"))
	require.Len(t, docs, 30)
	for i, doc := range docs {
		assert.Equal(t, fmt.Sprintf("container_home_svc-%02d", i), doc.ID)
	}
}

func TestProcessorEmptyInput(t *testing.T) {
	p, _ := newTestProcessor(t, nil)

	stats, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestProcessorCancelledContextStopsDispatch(t *testing.T) {
	p, _ := newTestProcessor(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entities := []*core.RawEntity{containerEntity("a"), containerEntity("b")}
	stats, err := p.Run(ctx, entities)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
}

func TestProcessorRequiresBatcher(t *testing.T) {
	writer, err := assemble.NewWriter(t.TempDir())
	require.NoError(t, err)
	defer writer.Close()

	_, err = NewProcessor(core.EntityTypeContainer, cleaning.DefaultRules(core.EntityTypeContainer),
		nil, writer, nil, nil)
	require.Error(t, err)
}
