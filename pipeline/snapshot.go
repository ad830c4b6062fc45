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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/poiesic/infradocs/core"
)

// snapshot is the on-disk shape of one collected system: identity fields
// plus one section per entity type. Collectors own this format; the
// pipeline reads it and never writes it.
type snapshot struct {
	System      string           `json:"system"`
	SystemType  string           `json:"system_type"`
	CollectedAt string           `json:"collected_at"`
	Containers  []map[string]any `json:"containers"`
	Host        map[string]any   `json:"host"`
	Services    []map[string]any `json:"services"`
	Networks    []map[string]any `json:"networks"`
}

// SnapshotSet is the loaded input of one run: entities grouped by type in
// stable file-then-section order, plus a content digest for idempotence
// checks across runs.
type SnapshotSet struct {
	Entities map[core.EntityType][]*core.RawEntity
	Digest   string
	Files    []string
}

// Count returns the total number of loaded entities.
func (s *SnapshotSet) Count() int {
	total := 0
	for _, entities := range s.Entities {
		total += len(entities)
	}
	return total
}

// LoadSnapshots reads every *.json snapshot in dir. Files are processed in
// lexical order so the resulting entity order, and therefore the output
// order, is input-derived and stable. Entities without a resolvable name,
// and entities whose derived document id collides with an already loaded
// one, are skipped with a warning, never fatal. Ids are unique within a
// run; the first occurrence wins.
func LoadSnapshots(dir string) (*SnapshotSet, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no snapshot files in %s", ErrNoSnapshots, dir)
	}
	sort.Strings(paths)

	logger := slog.Default().With("component", "snapshot-loader")

	set := &SnapshotSet{
		Entities: make(map[core.EntityType][]*core.RawEntity),
		Files:    paths,
	}

	seen := make(map[string]struct{})
	chunks := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
		}
		chunks = append(chunks, data)

		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSnapshot, path, err)
		}
		if snap.System == "" {
			return nil, fmt.Errorf("%w: %s: missing system name", ErrMalformedSnapshot, path)
		}

		collectSection(set, seen, logger, core.EntityTypeContainer, snap.System, snap.Containers)
		if len(snap.Host) > 0 {
			collectSection(set, seen, logger, core.EntityTypeHost, snap.System, []map[string]any{snap.Host})
		}
		collectSection(set, seen, logger, core.EntityTypeService, snap.System, snap.Services)
		collectSection(set, seen, logger, core.EntityTypeNetwork, snap.System, snap.Networks)
	}

	set.Digest = core.SnapshotDigest(chunks...)
	return set, nil
}

func collectSection(set *SnapshotSet, seen map[string]struct{}, logger *slog.Logger, entityType core.EntityType, system string, records []map[string]any) {
	for _, record := range records {
		name := entityName(entityType, record, system)
		if name == "" {
			logger.Warn("skipping unnamed entity", "type", entityType, "system", system)
			continue
		}

		id := core.DocumentID(entityType, system, name)
		if _, dup := seen[id]; dup {
			logger.Warn("skipping duplicate entity", "id", id, "type", entityType, "system", system)
			continue
		}

		entity := &core.RawEntity{
			Type:   entityType,
			System: system,
			Name:   name,
			Data:   record,
		}
		if err := core.ValidateRawEntity(entity); err != nil {
			logger.Warn("skipping invalid entity", "type", entityType, "system", system, "err", err)
			continue
		}
		seen[id] = struct{}{}
		set.Entities[entityType] = append(set.Entities[entityType], entity)
	}
}

// entityName resolves the identity field per section. Hosts without an
// explicit hostname take the system name: one host record per snapshot.
func entityName(entityType core.EntityType, record map[string]any, system string) string {
	if name, ok := record["name"].(string); ok && name != "" {
		return name
	}

	switch entityType {
	case core.EntityTypeHost:
		if overview, ok := record["system_overview"].(map[string]any); ok {
			if hostname, ok := overview["hostname"].(string); ok && hostname != "" {
				return hostname
			}
		}
		if hostname, ok := record["hostname"].(string); ok && hostname != "" {
			return hostname
		}
		return system
	case core.EntityTypeService:
		if unit, ok := record["unit"].(string); ok && unit != "" {
			return unit
		}
	}
	return ""
}
