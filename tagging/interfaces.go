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


package tagging

import (
	"context"

	"github.com/poiesic/infradocs/core"
)

// Request asks for discovery tags for one entity.
type Request struct {
	// EntityID is the deterministic document identifier of the entity.
	EntityID string

	// EntityType categorizes the entity.
	EntityType core.EntityType

	// Properties is the extracted property projection the tags are
	// derived from.
	Properties core.Properties
}

// Response carries the backend's tags for one entity of a batch.
type Response struct {
	EntityID string
	Tags     []string
}

// Backend produces semantic tags for batches of entities. Given entity
// properties it returns up to a handful of short tags answering: what is
// this generically called, what problem does it solve, what is its
// infrastructure role, and what larger system does it belong to.
//
// Implementations must be thread-safe; the same backend client is shared
// read-only across pipeline workers. A returned error applies to the whole
// batch and triggers rule-based fallback for every entity in it.
type Backend interface {
	GenerateTags(ctx context.Context, batch []Request) ([]Response, error)
}
