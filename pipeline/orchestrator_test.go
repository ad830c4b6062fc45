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
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/infradocs/config"
	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/history"
)

func testConfig(t *testing.T, parallel bool) *config.Config {
	t.Helper()

	inputDir := t.TempDir()
	writeSnapshot(t, inputDir, "home.json", homeSnapshot)

	cfg := config.Default()
	cfg.InputDirectory = inputDir
	cfg.OutputDirectory = t.TempDir()
	cfg.ParallelProcessing = parallel
	require.NoError(t, cfg.Validate())
	return cfg
}

func readDocuments(t *testing.T, path string) []*core.Document {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var docs []*core.Document
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		doc := &core.Document{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), doc))
		docs = append(docs, doc)
	}
	require.NoError(t, scanner.Err())
	return docs
}

func TestOrchestratorFullRun(t *testing.T) {
	cfg := testConfig(t, true)

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Release()

	meta, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, meta.EntitiesCount)
	assert.Equal(t, 0, meta.SkippedEntities)
	assert.False(t, meta.LLMEnabled)
	assert.ElementsMatch(t, []string{"container", "host", "service", "network"}, meta.EntityTypes)
	assert.NotEmpty(t, meta.RunID)
	assert.NotEmpty(t, meta.SnapshotDigest)

	containers := readDocuments(t, filepath.Join(meta.OutputDirectory, "containers.jsonl"))
	require.Len(t, containers, 2)

	// Input order: redis-1 first, then db.
	redis := containers[0]
	assert.Equal(t, "container_home_redis-1", redis.ID)
	assert.Contains(t, redis.Tags, "redis")
	assert.Contains(t, redis.Tags, "caching")
	assert.NotContains(t, redis.Metadata.EntityProperties, "status")

	foundDepends := false
	for _, rel := range redis.Metadata.Relationships {
		if rel.Kind == core.RelationDependsOn && rel.TargetRef == "db" {
			foundDepends = true
		}
	}
	assert.True(t, foundDepends, "redis-1 should depend on db")

	assert.FileExists(t, filepath.Join(meta.OutputDirectory, "run_metadata.json"))
	assert.FileExists(t, filepath.Join(meta.OutputDirectory, "hosts.jsonl"))
	assert.FileExists(t, filepath.Join(meta.OutputDirectory, "services.jsonl"))
	assert.FileExists(t, filepath.Join(meta.OutputDirectory, "networks.jsonl"))
}

func TestOrchestratorDeterministicOutput(t *testing.T) {
	inputDir := t.TempDir()
	writeSnapshot(t, inputDir, "home.json", homeSnapshot)

	run := func() []byte {
		cfg := config.Default()
		cfg.InputDirectory = inputDir
		cfg.OutputDirectory = t.TempDir()
		require.NoError(t, cfg.Validate())

		o, err := NewOrchestrator(cfg)
		require.NoError(t, err)
		defer o.Release()

		meta, err := o.Run(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(meta.OutputDirectory, "containers.jsonl"))
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, run(), run())
}

func TestOrchestratorSequentialMatchesParallel(t *testing.T) {
	inputDir := t.TempDir()
	writeSnapshot(t, inputDir, "home.json", homeSnapshot)

	run := func(parallel bool) []byte {
		cfg := config.Default()
		cfg.InputDirectory = inputDir
		cfg.OutputDirectory = t.TempDir()
		cfg.ParallelProcessing = parallel
		require.NoError(t, cfg.Validate())

		o, err := NewOrchestrator(cfg)
		require.NoError(t, err)
		defer o.Release()

		meta, err := o.Run(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(meta.OutputDirectory, "containers.jsonl"))
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, run(false), run(true))
}

func TestOrchestratorDisabledProcessor(t *testing.T) {
	cfg := testConfig(t, false)
	hostCfg := cfg.Processors["host"]
	hostCfg.Enabled = false
	cfg.Processors["host"] = hostCfg

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Release()

	meta, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, meta.EntityTypes, "host")
	assert.NoFileExists(t, filepath.Join(meta.OutputDirectory, "hosts.jsonl"))
}

func TestOrchestratorCustomCleaningRules(t *testing.T) {
	cfg := testConfig(t, false)
	containerCfg := cfg.Processors["container"]
	containerCfg.CleaningRules = []string{"labels"}
	cfg.Processors["container"] = containerCfg

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Release()

	meta, err := o.Run(context.Background())
	require.NoError(t, err)

	containers := readDocuments(t, filepath.Join(meta.OutputDirectory, "containers.jsonl"))
	for _, doc := range containers {
		for _, rel := range doc.Metadata.Relationships {
			assert.NotEqual(t, core.RelationDependsOn, rel.Kind,
				"label-derived dependency should be stripped with labels cleaned")
		}
	}
}

func TestOrchestratorRecordsHistory(t *testing.T) {
	cfg := testConfig(t, false)

	store, err := history.Open("", true)
	require.NoError(t, err)
	defer store.Close()

	o, err := NewOrchestrator(cfg, WithHistoryStore(store))
	require.NoError(t, err)
	defer o.Release()

	meta, err := o.Run(context.Background())
	require.NoError(t, err)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, meta.RunID, latest.RunID)
	assert.Equal(t, meta.EntitiesCount, latest.EntitiesCount)
}

func TestOrchestratorEmptyInputFails(t *testing.T) {
	cfg := config.Default()
	cfg.InputDirectory = t.TempDir()
	cfg.OutputDirectory = t.TempDir()
	require.NoError(t, cfg.Validate())

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Release()

	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestOrchestratorRequiresConfig(t *testing.T) {
	_, err := NewOrchestrator(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigRequired)
}

func TestOrchestratorSaveIntermediate(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.SaveIntermediate = true

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Release()

	meta, err := o.Run(context.Background())
	require.NoError(t, err)

	debugDir := filepath.Join(meta.OutputDirectory, "debug")
	entries, err := os.ReadDir(debugDir)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
