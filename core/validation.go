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

import "fmt"

// ValidateRawEntity validates a RawEntity according to domain rules.
//
// Validation rules:
//   - Type must be a known EntityType
//   - Name must not be empty
//   - System must not be empty
//
// NOT validated:
//   - Data (collectors own its shape; the cleaning stage tolerates anything)
func ValidateRawEntity(entity *RawEntity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if err := ValidateEntityType(entity.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if entity.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if entity.System == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptySystemName)
	}

	return nil
}

// ValidateDocument validates an assembled Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Type must be a known EntityType
//   - Tags must not be empty (the rule fallback guarantees at least one)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if err := ValidateEntityType(doc.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if len(doc.Tags) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTagSet)
	}

	return nil
}

// ValidateEntityType validates that an EntityType has a known value.
func ValidateEntityType(t EntityType) error {
	switch t {
	case EntityTypeContainer, EntityTypeHost, EntityTypeService, EntityTypeNetwork:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidEntityType, t)
}
