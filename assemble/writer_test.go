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


package assemble

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/infradocs/core"
)

func testDocument(id string, entityType core.EntityType) *core.Document {
	return &core.Document{
		ID:      id,
		Type:    entityType,
		Title:   id,
		Content: "content for " + id,
		Metadata: core.DocumentMetadata{
			EntityProperties: core.Properties{},
		},
		Tags: []string{"test"},
	}
}

func TestWriterCreatesRunDirectory(t *testing.T) {
	base := t.TempDir()

	w, err := NewWriter(base)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(w.Dir()), "run_"))
	info, err := os.Stat(w.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriterStreamsPerType(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteDocument(testDocument("container_home_a", core.EntityTypeContainer)))
	require.NoError(t, w.WriteDocument(testDocument("container_home_b", core.EntityTypeContainer)))
	require.NoError(t, w.WriteDocument(testDocument("host_home_pve1", core.EntityTypeHost)))

	assert.FileExists(t, filepath.Join(w.Dir(), "containers.jsonl"))
	assert.FileExists(t, filepath.Join(w.Dir(), "hosts.jsonl"))
	assert.NoFileExists(t, filepath.Join(w.Dir(), "services.jsonl"))
}

func TestWriterWholeLineRecords(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc := testDocument(core.DocumentID(core.EntityTypeContainer, "home", strings.Repeat("x", n+1)), core.EntityTypeContainer)
			assert.NoError(t, w.WriteDocument(doc))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(w.Dir(), "containers.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc core.Document
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc), "line %d is not valid JSON", lines+1)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 20, lines)
}

func TestWriterCloseIdempotent(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.WriteDocument(testDocument("container_home_a", core.EntityTypeContainer)))

	// An explicit close surfaces flush failures; a later deferred close
	// must stay a no-op.
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWriterRejectsInvalidDocument(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	doc := testDocument("container_home_bad", core.EntityTypeContainer)
	doc.Tags = nil

	err = w.WriteDocument(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestWriteRunMetadata(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	meta := &core.RunMetadata{
		RunID:          "abc123",
		EntitiesCount:  4,
		EntityTypes:    []string{"container", "host"},
		LLMEnabled:     false,
		FallbackUsed:   true,
		SnapshotDigest: "deadbeef",
	}
	require.NoError(t, w.WriteRunMetadata(meta))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "run_metadata.json"))
	require.NoError(t, err)

	var got core.RunMetadata
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *meta, got)
}

func TestIntermediateWriterDisabled(t *testing.T) {
	dir := t.TempDir()
	iw := NewIntermediateWriter(dir, false)

	iw.Write("container_home_redis-1", map[string]any{"cleaned": true})

	assert.NoDirExists(t, filepath.Join(dir, "debug"))
}

func TestIntermediateWriterWritesDebugFile(t *testing.T) {
	dir := t.TempDir()
	iw := NewIntermediateWriter(dir, true)

	iw.Write("container_home_redis-1", map[string]any{"cleaned": map[string]any{"image": "redis:7"}})

	path := filepath.Join(dir, "debug", "container_home_redis-1_intermediate.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Contains(t, payload, "cleaned")
}
