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


package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/poiesic/infradocs/core"
)

// Issue is one validation finding, tied to a document and field path.
type Issue struct {
	DocumentID string `json:"document_id"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// Report aggregates all findings of one validation run. The validator is
// exhaustive per document, so a single report enumerates every problem.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the run produced no errors. Warnings alone do not
// invalidate a document set.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Summary renders a one-line human-readable result.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d errors, %d warnings", len(r.Errors), len(r.Warnings))
}

// Validator checks documents against the loaded per-type schemas. It is
// read-only: documents are never mutated or dropped.
type Validator struct {
	schemas map[core.EntityType]*Schema
	logger  *slog.Logger
}

// NewValidator creates a validator over schemas loaded from dir.
func NewValidator(dir string) (*Validator, error) {
	schemas, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return &Validator{
		schemas: schemas,
		logger:  slog.Default().With("component", "schema-validator"),
	}, nil
}

// Validate checks every document against the schema for its type.
// Documents whose type has no loaded schema produce a warning, not an
// error.
func (v *Validator) Validate(docs []*core.Document) *Report {
	report := &Report{}

	for _, doc := range docs {
		s, ok := v.schemas[doc.Type]
		if !ok {
			report.Warnings = append(report.Warnings, Issue{
				DocumentID: doc.ID,
				Field:      "type",
				Message:    fmt.Sprintf("no schema loaded for entity type %q", doc.Type),
			})
			continue
		}
		v.validateDocument(doc, s, report)
	}

	v.logger.Info("validation complete",
		"documents", len(docs),
		"errors", len(report.Errors),
		"warnings", len(report.Warnings))
	return report
}

// validateDocument checks one document against all schema tiers. The
// document is resolved through its JSON form so paths match what lands on
// disk.
func (v *Validator) validateDocument(doc *core.Document, s *Schema, report *Report) {
	data, err := json.Marshal(doc)
	if err != nil {
		report.Errors = append(report.Errors, Issue{
			DocumentID: doc.ID,
			Field:      "",
			Message:    fmt.Sprintf("document not serializable: %v", err),
		})
		return
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		report.Errors = append(report.Errors, Issue{
			DocumentID: doc.ID,
			Field:      "",
			Message:    fmt.Sprintf("document not deserializable: %v", err),
		})
		return
	}

	for _, tier := range s.tiersInOrder() {
		paths := make([]string, 0, len(tier.fields))
		for path := range tier.fields {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			v.checkField(doc.ID, body, path, tier.fields[path], report)
		}
	}
}

// checkField applies the constraint chain for one field:
// presence -> nullability -> type -> enum/pattern/format/min-length.
// A wrong-typed field stops its own chain but never the document.
func (v *Validator) checkField(docID string, body map[string]any, path string, spec *FieldSpec, report *Report) {
	value, present := lookupPath(body, path)
	if !present {
		if spec.Required {
			report.Errors = append(report.Errors, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    "missing required field",
			})
		}
		return
	}

	if value == nil {
		if !spec.Nullable {
			report.Errors = append(report.Errors, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    "field is null but not nullable",
			})
		}
		return
	}

	if !typeMatches(value, spec.Type) {
		report.Errors = append(report.Errors, Issue{
			DocumentID: docID,
			Field:      path,
			Message:    fmt.Sprintf("expected %s, got %s", spec.Type, jsonTypeName(value)),
		})
		return
	}

	v.checkConstraints(docID, path, value, spec, report)
}

func (v *Validator) checkConstraints(docID, path string, value any, spec *FieldSpec, report *Report) {
	switch typed := value.(type) {
	case string:
		if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, typed) {
			report.Errors = append(report.Errors, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    fmt.Sprintf("value %q not in enum %v", typed, spec.Enum),
			})
		}
		if spec.pattern != nil && !spec.pattern.MatchString(typed) {
			report.Errors = append(report.Errors, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    fmt.Sprintf("value %q does not match pattern %s", typed, spec.Pattern),
			})
		}
		if spec.Format != "" && !formatPatterns[spec.Format].MatchString(typed) {
			report.Errors = append(report.Errors, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    fmt.Sprintf("value %q is not valid %s", typed, spec.Format),
			})
		}
		if spec.MinLength > 0 && len(typed) < spec.MinLength {
			report.Warnings = append(report.Warnings, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    fmt.Sprintf("length %d below minimum %d", len(typed), spec.MinLength),
			})
		}

	case []any:
		if spec.MinLength > 0 && len(typed) < spec.MinLength {
			report.Warnings = append(report.Warnings, Issue{
				DocumentID: docID,
				Field:      path,
				Message:    fmt.Sprintf("length %d below minimum %d", len(typed), spec.MinLength),
			})
		}
		if spec.ItemSchema != nil {
			for i, item := range typed {
				itemPath := fmt.Sprintf("%s[%d]", path, i)
				if item == nil {
					if !spec.ItemSchema.Nullable {
						report.Errors = append(report.Errors, Issue{
							DocumentID: docID,
							Field:      itemPath,
							Message:    "element is null but not nullable",
						})
					}
					continue
				}
				if !typeMatches(item, spec.ItemSchema.Type) {
					report.Errors = append(report.Errors, Issue{
						DocumentID: docID,
						Field:      itemPath,
						Message:    fmt.Sprintf("expected %s, got %s", spec.ItemSchema.Type, jsonTypeName(item)),
					})
					continue
				}
				v.checkConstraints(docID, itemPath, item, spec.ItemSchema, report)
			}
		}

	case map[string]any:
		names := make([]string, 0, len(spec.Fields))
		for name := range spec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v.checkField(docID, typed, name, spec.Fields[name], report)
		}
	}
}

// lookupPath resolves a dotted path against nested JSON objects.
// The second return distinguishes an absent key from a present null.
func lookupPath(body map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	current := any(body)
	for i, segment := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, present := obj[segment]
		if !present {
			return nil, false
		}
		if i == len(segments)-1 {
			return value, true
		}
		current = value
	}
	return nil, false
}

func typeMatches(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	}
	return false
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}
