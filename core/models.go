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


package core

import (
	"strings"
	"time"
)

// EntityType identifies the kind of infrastructure object an entity describes.
type EntityType string

const (
	// EntityTypeContainer represents a container instance (Docker or compatible).
	EntityTypeContainer EntityType = "container"
	// EntityTypeHost represents a physical or virtual host system.
	EntityTypeHost EntityType = "host"
	// EntityTypeService represents a managed system service (e.g. a systemd unit).
	EntityTypeService EntityType = "service"
	// EntityTypeNetwork represents a named network shared between entities.
	EntityTypeNetwork EntityType = "network"
)

// EntityTypes lists all entity types the pipeline knows how to process,
// in canonical processing order.
var EntityTypes = []EntityType{
	EntityTypeContainer,
	EntityTypeHost,
	EntityTypeService,
	EntityTypeNetwork,
}

// RawEntity is a single infrastructure object as handed over by a collector.
// Data holds the collector's nested record and mixes persistent configuration
// with ephemeral runtime state; it is read-only to the pipeline. Only the
// cleaning stage walks Data generically, every later stage sees a cleaned,
// per-type projection.
type RawEntity struct {
	Type   EntityType
	System string // name of the system the entity was collected from
	Name   string
	Data   map[string]any
}

// RelationKind is the type of a directed relationship edge between entities.
type RelationKind string

const (
	RelationRunsOn      RelationKind = "runs_on"
	RelationDependsOn   RelationKind = "depends_on"
	RelationProvidesTo  RelationKind = "provides_to"
	RelationConfigFiles RelationKind = "config_files"
	RelationNetworks    RelationKind = "networks"
	RelationVolumes     RelationKind = "volumes"
)

// Relationship is a typed directed edge from a source entity to a target
// reference. TargetRef need not resolve to a known entity; dangling
// references are valid and reported, not errors.
type Relationship struct {
	Kind      RelationKind `json:"kind"`
	SourceID  string       `json:"source_id"`
	TargetRef string       `json:"target_ref"`
}

// Properties is the flattened, entity-type-specific projection of stable
// identity and configuration attributes extracted from a cleaned entity.
type Properties map[string]any

// TagSource records which path produced a tag set.
type TagSource string

const (
	// TagSourceBackend means the tags came from the LLM backend.
	TagSourceBackend TagSource = "backend"
	// TagSourceRules means the tags came from the deterministic rule fallback.
	TagSourceRules TagSource = "rules"
)

// TagSet is the ordered, de-duplicated set of discovery tags for one entity,
// together with the path that produced it.
type TagSet struct {
	Tags   []string  `json:"tags"`
	Source TagSource `json:"source"`
}

// DocumentMetadata holds the structured, programmatically queryable part of a
// canonical document.
type DocumentMetadata struct {
	EntityProperties Properties     `json:"entity_properties"`
	Relationships    []Relationship `json:"relationships"`
}

// Document is the canonical output unit produced for one entity per run.
// It is never mutated after assembly; the next run's document with the same
// ID supersedes it.
type Document struct {
	ID       string           `json:"id"`
	Type     EntityType       `json:"type"`
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
	Tags     []string         `json:"tags"`
}

// RunMetadata describes one pipeline execution and the output set it
// accompanies. Write-once.
type RunMetadata struct {
	RunID              string    `json:"run_id"`
	Timestamp          time.Time `json:"timestamp"`
	EntitiesCount      int       `json:"entities_count"`
	SkippedEntities    int       `json:"skipped_entities"`
	EntityTypes        []string  `json:"entity_types"`
	LLMEnabled         bool      `json:"llm_enabled"`
	ParallelProcessing bool      `json:"parallel_processing"`
	FallbackUsed       bool      `json:"fallback_used"`
	SnapshotDigest     string    `json:"snapshot_digest"`
	ElapsedMillis      int64     `json:"elapsed_ms"`
	OutputDirectory    string    `json:"output_directory"`
}

// DocumentID constructs the deterministic document identifier
// {entity_type}_{source_system}_{source_name}. Characters that are unsafe as
// file or line keys are substituted with '-' so re-runs over the same input
// always yield the same id.
func DocumentID(entityType EntityType, system, name string) string {
	return string(entityType) + "_" + sanitizeIDPart(system) + "_" + sanitizeIDPart(name)
}

func sanitizeIDPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}
