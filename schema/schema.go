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


// Package schema validates assembled documents against declarative,
// per-entity-type YAML schemas. Validation is read-only and decoupled from
// the write path: it runs against whatever the assembler produced, so
// pipeline failures and validation failures stay independently diagnosable.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/infradocs/core"
)

// FieldSpec declares the constraints for one document field. Field paths are
// dotted and resolved against the document's JSON form.
type FieldSpec struct {
	// Type is one of: string, integer, number, boolean, object, array.
	Type string `yaml:"type"`

	// Required makes absence an error. Absent non-required fields pass.
	Required bool `yaml:"required"`

	// Nullable allows an explicit null value.
	Nullable bool `yaml:"nullable"`

	// Enum restricts a string field to the listed values.
	Enum []string `yaml:"enum,omitempty"`

	// Pattern is an anchored regular expression for string fields.
	Pattern string `yaml:"pattern,omitempty"`

	// MinLength bounds string length or array size. Violations are
	// warnings, not errors.
	MinLength int `yaml:"min_length,omitempty"`

	// Format names a well-known string format. Supported: iso8601.
	Format string `yaml:"format,omitempty"`

	// Fields declares nested constraints for object fields.
	Fields map[string]*FieldSpec `yaml:"fields,omitempty"`

	// ItemSchema declares the constraint applied to every array element.
	ItemSchema *FieldSpec `yaml:"item_schema,omitempty"`

	pattern *regexp.Regexp
}

// Tiers groups field specs by schema tier. Root holds identity fields,
// tier1 the free-text content, tier2 summary metadata and tier3 the
// detailed nested fields. Tiers are checked in this order so reports read
// from identity outward.
type Tiers struct {
	Root  map[string]*FieldSpec `yaml:"root"`
	Tier1 map[string]*FieldSpec `yaml:"tier1"`
	Tier2 map[string]*FieldSpec `yaml:"tier2"`
	Tier3 map[string]*FieldSpec `yaml:"tier3"`
}

// Schema is the declarative validation contract for one entity type.
// Schemas are configuration, not code: they are loaded fresh per validation
// run.
type Schema struct {
	EntityType core.EntityType `yaml:"entity_type"`
	Tiers      Tiers           `yaml:"tiers"`
}

var formatPatterns = map[string]*regexp.Regexp{
	"iso8601": regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
}

// Load reads and compiles one schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSchema, path, err)
	}

	if err := core.ValidateEntityType(s.EntityType); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSchema, path, err)
	}

	for _, tier := range s.tiersInOrder() {
		for field, spec := range tier.fields {
			if err := compileSpec(spec); err != nil {
				return nil, fmt.Errorf("%w: %s: field %s: %w", ErrMalformedSchema, path, field, err)
			}
		}
	}
	return &s, nil
}

// LoadDir loads every *.yml schema from a directory, keyed by entity type.
func LoadDir(dir string) (map[core.EntityType]*Schema, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no schema files in %s", ErrMalformedSchema, dir)
	}

	schemas := make(map[core.EntityType]*Schema, len(paths))
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		if _, dup := schemas[s.EntityType]; dup {
			return nil, fmt.Errorf("%w: duplicate schema for type %s", ErrMalformedSchema, s.EntityType)
		}
		schemas[s.EntityType] = s
	}
	return schemas, nil
}

type namedTier struct {
	name   string
	fields map[string]*FieldSpec
}

func (s *Schema) tiersInOrder() []namedTier {
	return []namedTier{
		{"root", s.Tiers.Root},
		{"tier1", s.Tiers.Tier1},
		{"tier2", s.Tiers.Tier2},
		{"tier3", s.Tiers.Tier3},
	}
}

func compileSpec(spec *FieldSpec) error {
	if spec == nil {
		return fmt.Errorf("empty field spec")
	}

	switch spec.Type {
	case "string", "integer", "number", "boolean", "object", "array":
	default:
		return fmt.Errorf("unknown type %q", spec.Type)
	}

	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		spec.pattern = re
	}

	if spec.Format != "" {
		if _, ok := formatPatterns[spec.Format]; !ok {
			return fmt.Errorf("unknown format %q", spec.Format)
		}
	}

	for name, sub := range spec.Fields {
		if err := compileSpec(sub); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	if spec.ItemSchema != nil {
		if err := compileSpec(spec.ItemSchema); err != nil {
			return fmt.Errorf("item schema: %w", err)
		}
	}
	return nil
}
