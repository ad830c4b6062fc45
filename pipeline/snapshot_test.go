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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/infradocs/core"
)

const homeSnapshot = `{
  "system": "home",
  "system_type": "docker_host",
  "collected_at": "2026-08-29T10:00:00Z",
  "containers": [
    {"name": "redis-1", "image": "redis:7", "status": "running", "labels": {"depends_on": "db"}},
    {"name": "db", "image": "postgres:16"}
  ],
  "host": {"system_overview": {"hostname": "pve1", "os": "Debian 12"}},
  "services": [{"name": "nginx.service", "description": "A high performance web server"}],
  "networks": [{"name": "frontend", "driver": "bridge"}]
}`

func writeSnapshot(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSnapshotsGroupsByType(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "home.json", homeSnapshot)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, set.Count())
	assert.Len(t, set.Entities[core.EntityTypeContainer], 2)
	assert.Len(t, set.Entities[core.EntityTypeHost], 1)
	assert.Len(t, set.Entities[core.EntityTypeService], 1)
	assert.Len(t, set.Entities[core.EntityTypeNetwork], 1)

	redis := set.Entities[core.EntityTypeContainer][0]
	assert.Equal(t, "redis-1", redis.Name)
	assert.Equal(t, "home", redis.System)

	host := set.Entities[core.EntityTypeHost][0]
	assert.Equal(t, "pve1", host.Name)
}

func TestLoadSnapshotsStableOrder(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "beta.json", `{"system": "beta", "containers": [{"name": "b1"}]}`)
	writeSnapshot(t, dir, "alpha.json", `{"system": "alpha", "containers": [{"name": "a1"}, {"name": "a2"}]}`)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	containers := set.Entities[core.EntityTypeContainer]
	require.Len(t, containers, 3)
	assert.Equal(t, "a1", containers[0].Name)
	assert.Equal(t, "a2", containers[1].Name)
	assert.Equal(t, "b1", containers[2].Name)
}

func TestLoadSnapshotsDigestStable(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "home.json", homeSnapshot)

	first, err := LoadSnapshots(dir)
	require.NoError(t, err)
	second, err := LoadSnapshots(dir)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.NotEmpty(t, first.Digest)
}

func TestLoadSnapshotsSkipsUnnamedEntities(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "home.json", `{"system": "home", "containers": [{"image": "redis:7"}, {"name": "db"}]}`)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	require.Len(t, set.Entities[core.EntityTypeContainer], 1)
	assert.Equal(t, "db", set.Entities[core.EntityTypeContainer][0].Name)
}

func TestLoadSnapshotsSkipsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "home.json", `{
	  "system": "home",
	  "containers": [
	    {"name": "redis-1", "image": "redis:7"},
	    {"name": "redis-1", "image": "redis:6"},
	    {"name": "db", "image": "postgres:16"}
	  ]
	}`)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	// First occurrence wins; the collision is dropped, not overwritten.
	containers := set.Entities[core.EntityTypeContainer]
	require.Len(t, containers, 2)
	assert.Equal(t, "redis-1", containers[0].Name)
	assert.Equal(t, "redis:7", containers[0].Data["image"])
	assert.Equal(t, "db", containers[1].Name)
}

func TestLoadSnapshotsDuplicateIDsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "a.json", `{"system": "home", "containers": [{"name": "redis-1", "image": "redis:7"}]}`)
	writeSnapshot(t, dir, "b.json", `{"system": "home", "containers": [{"name": "redis-1", "image": "redis:6"}]}`)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	containers := set.Entities[core.EntityTypeContainer]
	require.Len(t, containers, 1)
	assert.Equal(t, "redis:7", containers[0].Data["image"])
}

func TestLoadSnapshotsHostFallsBackToSystemName(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "home.json", `{"system": "home", "host": {"os": "Debian"}}`)

	set, err := LoadSnapshots(dir)
	require.NoError(t, err)

	require.Len(t, set.Entities[core.EntityTypeHost], 1)
	assert.Equal(t, "home", set.Entities[core.EntityTypeHost][0].Name)
}

func TestLoadSnapshotsEmptyDirectory(t *testing.T) {
	_, err := LoadSnapshots(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestLoadSnapshotsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "bad.json", `{not json`)

	_, err := LoadSnapshots(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestLoadSnapshotsMissingSystem(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "bad.json", `{"containers": [{"name": "x"}]}`)

	_, err := LoadSnapshots(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}
