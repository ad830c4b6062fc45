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


package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/infradocs/core"
)

// Extract derives the typed property projection and relationship edges for a
// cleaned entity. Properties are a fixed per-type selection of stable
// identity and configuration attributes, not a dump of the record.
//
// Relationship sources are scanned in priority order: orchestration labels,
// environment variable references, network membership, volume mounts, and
// explicit collector-declared cross references. Duplicate edges are
// deduplicated; when two sources assert an edge between the same pair with
// different kinds, the earlier-priority source wins. An entity with no
// detectable cross references yields an empty slice, never an error.
func Extract(entity *core.RawEntity, cleaned map[string]any) (core.Properties, []core.Relationship, error) {
	if err := core.ValidateRawEntity(entity); err != nil {
		return nil, nil, err
	}

	id := core.DocumentID(entity.Type, entity.System, entity.Name)
	edges := newEdgeSet(id)

	var props core.Properties
	switch entity.Type {
	case core.EntityTypeContainer:
		props = extractContainer(entity, cleaned, edges)
	case core.EntityTypeHost:
		props = extractHost(entity, cleaned, edges)
	case core.EntityTypeService:
		props = extractService(entity, cleaned, edges)
	case core.EntityTypeNetwork:
		props = extractNetwork(entity, cleaned, edges)
	default:
		return nil, nil, fmt.Errorf("%w: %q", core.ErrInvalidEntityType, entity.Type)
	}

	return props, edges.relationships(), nil
}

// Relationship source priorities, low value wins on conflict.
const (
	prioLabels    = 1
	prioEnvRefs   = 2
	prioNetworks  = 3
	prioVolumes   = 4
	prioCollector = 5
)

type candidate struct {
	kind     core.RelationKind
	priority int
}

// edgeSet accumulates relationship candidates and resolves duplicates.
type edgeSet struct {
	sourceID string
	edges    map[string]candidate // keyed by target ref
}

func newEdgeSet(sourceID string) *edgeSet {
	return &edgeSet{sourceID: sourceID, edges: make(map[string]candidate)}
}

func (es *edgeSet) add(kind core.RelationKind, target string, priority int) {
	target = strings.TrimSpace(target)
	if target == "" || target == es.sourceID {
		return
	}

	existing, ok := es.edges[target]
	if ok && existing.priority <= priority {
		return
	}
	es.edges[target] = candidate{kind: kind, priority: priority}
}

// relationships returns the resolved edges in a stable order (kind, then
// target) so re-runs produce identical output.
func (es *edgeSet) relationships() []core.Relationship {
	rels := make([]core.Relationship, 0, len(es.edges))
	for target, c := range es.edges {
		rels = append(rels, core.Relationship{
			Kind:      c.kind,
			SourceID:  es.sourceID,
			TargetRef: target,
		})
	}

	slices.SortFunc(rels, func(a, b core.Relationship) int {
		if a.Kind != b.Kind {
			return strings.Compare(string(a.Kind), string(b.Kind))
		}
		return strings.Compare(a.TargetRef, b.TargetRef)
	})
	return rels
}

// addCollectorRefs handles cross references declared explicitly by the
// collector: depends_on, provides_to and config_files lists on the record.
func addCollectorRefs(data map[string]any, edges *edgeSet) {
	for _, ref := range stringList(data["depends_on"]) {
		edges.add(core.RelationDependsOn, ref, prioCollector)
	}
	for _, ref := range stringList(data["provides_to"]) {
		edges.add(core.RelationProvidesTo, ref, prioCollector)
	}
	for _, ref := range stringList(data["config_files"]) {
		edges.add(core.RelationConfigFiles, ref, prioCollector)
	}
}

func setIfNotEmpty(props core.Properties, key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	}
	props[key] = value
}
