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


// Package assemble turns the outputs of the cleaning, extraction and tagging
// stages into retrieval-ready documents and persists them as JSONL streams.
package assemble

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/infradocs/core"
)

// maxContentWords is the soft bound on synthesized narrative length.
// Exceeding it logs a warning but never blocks the document.
const maxContentWords = 400

// Assemble builds the final document for one entity from the stage outputs.
// The synthesized narrative degrades gracefully: clauses whose source
// property is absent are omitted rather than rendered with placeholders.
func Assemble(id string, entity *core.RawEntity, cleaned map[string]any,
	props core.Properties, rels []core.Relationship, tags core.TagSet) (*core.Document, error) {
	if err := core.ValidateRawEntity(entity); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, core.ErrEmptyDocumentID
	}
	if len(tags.Tags) == 0 {
		return nil, fmt.Errorf("%w: document %s", core.ErrEmptyTagSet, id)
	}

	// Absent stages serialize as empty, never null.
	if props == nil {
		props = core.Properties{}
	}
	if rels == nil {
		rels = []core.Relationship{}
	}

	content := synthesizeContent(entity, props, rels)
	if words := len(strings.Fields(content)); words > maxContentWords {
		slog.Default().With("component", "assembler").
			Warn("document content exceeds word bound", "id", id, "words", words)
	}

	doc := &core.Document{
		ID:      id,
		Type:    entity.Type,
		Title:   synthesizeTitle(entity),
		Content: content,
		Metadata: core.DocumentMetadata{
			EntityProperties: props,
			Relationships:    rels,
		},
		Tags: tags.Tags,
	}

	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func synthesizeTitle(entity *core.RawEntity) string {
	switch entity.Type {
	case core.EntityTypeContainer:
		return fmt.Sprintf("%s on %s", entity.Name, entity.System)
	case core.EntityTypeHost:
		return fmt.Sprintf("%s host overview", entity.Name)
	case core.EntityTypeService:
		return fmt.Sprintf("%s service on %s", entity.Name, entity.System)
	case core.EntityTypeNetwork:
		return fmt.Sprintf("%s network on %s", entity.Name, entity.System)
	}
	return entity.Name
}

func synthesizeContent(entity *core.RawEntity, props core.Properties, rels []core.Relationship) string {
	var parts []string

	switch entity.Type {
	case core.EntityTypeContainer:
		parts = containerClauses(entity, props)
	case core.EntityTypeHost:
		parts = hostClauses(entity, props)
	case core.EntityTypeService:
		parts = serviceClauses(entity, props)
	case core.EntityTypeNetwork:
		parts = networkClauses(entity, props)
	}

	if summary := relationshipSummary(rels); summary != "" {
		parts = append(parts, summary)
	}
	return strings.Join(parts, " ")
}

func containerClauses(entity *core.RawEntity, props core.Properties) []string {
	role := "containerized"
	image := propString(props, "image")
	if image != "" {
		base := image
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		base, _, _ = strings.Cut(base, ":")
		if base != "" {
			role = base
		}
	}

	parts := []string{fmt.Sprintf("%s is a %s service running on %s.", entity.Name, role, entity.System)}
	if image != "" {
		parts = append(parts, fmt.Sprintf("It uses the %s Docker image.", image))
	}
	if ports := propStrings(props, "exposed_ports"); len(ports) > 0 {
		parts = append(parts, fmt.Sprintf("It exposes ports: %s.", strings.Join(ports, ", ")))
	}
	if mounts := propStrings(props, "bind_mounts"); len(mounts) > 0 {
		parts = append(parts, fmt.Sprintf("It has %d persistent data mounts.", len(mounts)))
	}
	if project := propString(props, "compose_project"); project != "" {
		parts = append(parts, fmt.Sprintf("It belongs to the %s compose project.", project))
	}
	return parts
}

func hostClauses(entity *core.RawEntity, props core.Properties) []string {
	parts := []string{fmt.Sprintf("%s is a physical or virtual host in the %s system.", entity.Name, entity.System)}
	if os := propString(props, "os"); os != "" {
		clause := fmt.Sprintf("It runs %s", os)
		if arch := propString(props, "architecture"); arch != "" {
			clause += fmt.Sprintf(" on %s", arch)
		}
		parts = append(parts, clause+".")
	}
	if cpu := propString(props, "cpu_model"); cpu != "" {
		clause := fmt.Sprintf("Hardware: %s", cpu)
		if cores, ok := props["cpu_cores"]; ok {
			clause += fmt.Sprintf(" with %v cores", cores)
		}
		parts = append(parts, clause+".")
	}
	if mem, ok := props["memory_total_gb"]; ok {
		parts = append(parts, fmt.Sprintf("It has %v GB of memory.", mem))
	}
	return parts
}

func serviceClauses(entity *core.RawEntity, props core.Properties) []string {
	unitType := propString(props, "unit_type")
	if unitType == "" {
		unitType = "systemd"
	}
	parts := []string{fmt.Sprintf("%s is a %s unit on %s.", entity.Name, unitType, entity.System)}
	if desc := propString(props, "description"); desc != "" {
		parts = append(parts, desc+".")
	}
	if exec := propString(props, "exec_start"); exec != "" {
		parts = append(parts, fmt.Sprintf("It starts via %s.", exec))
	}
	return parts
}

func networkClauses(entity *core.RawEntity, props core.Properties) []string {
	driver := propString(props, "driver")
	if driver == "" {
		driver = "container"
	}
	parts := []string{fmt.Sprintf("%s is a %s network on %s.", entity.Name, driver, entity.System)}
	if subnet := propString(props, "subnet"); subnet != "" {
		clause := fmt.Sprintf("It spans subnet %s", subnet)
		if gw := propString(props, "gateway"); gw != "" {
			clause += fmt.Sprintf(" with gateway %s", gw)
		}
		parts = append(parts, clause+".")
	}
	return parts
}

// relationshipSummary renders the extracted edges as one sentence, e.g.
// "It runs on homelab; depends on db, redis-1."
func relationshipSummary(rels []core.Relationship) string {
	byKind := make(map[core.RelationKind][]string)
	for _, rel := range rels {
		byKind[rel.Kind] = append(byKind[rel.Kind], rel.TargetRef)
	}

	order := []struct {
		kind core.RelationKind
		verb string
	}{
		{core.RelationRunsOn, "runs on"},
		{core.RelationDependsOn, "depends on"},
		{core.RelationProvidesTo, "provides to"},
		{core.RelationNetworks, "attaches to networks"},
		{core.RelationVolumes, "mounts"},
		{core.RelationConfigFiles, "reads configuration from"},
	}

	var clauses []string
	for _, o := range order {
		if targets := byKind[o.kind]; len(targets) > 0 {
			clauses = append(clauses, fmt.Sprintf("%s %s", o.verb, strings.Join(targets, ", ")))
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return "It " + strings.Join(clauses, "; ") + "."
}

func propString(props core.Properties, key string) string {
	s, _ := props[key].(string)
	return s
}

func propStrings(props core.Properties, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
