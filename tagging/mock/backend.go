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


// Package mock provides a test double for the tagging backend.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/infradocs/tagging"
)

// MockBackend is a test double for tagging.Backend.
// It allows custom behavior injection via function fields.
type MockBackend struct {
	// GenerateTagsFunc is called by GenerateTags if set.
	// If nil, uses default synthetic tag generation.
	GenerateTagsFunc func(ctx context.Context, batch []tagging.Request) ([]tagging.Response, error)

	mu        sync.Mutex
	callCount int
	batches   [][]tagging.Request
}

// NewMockBackend creates a mock backend with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// GenerateTags records the call and either delegates to GenerateTagsFunc or
// produces a deterministic synthetic tag per entity.
func (m *MockBackend) GenerateTags(ctx context.Context, batch []tagging.Request) ([]tagging.Response, error) {
	m.mu.Lock()
	m.callCount++
	m.batches = append(m.batches, batch)
	m.mu.Unlock()

	if m.GenerateTagsFunc != nil {
		return m.GenerateTagsFunc(ctx, batch)
	}

	responses := make([]tagging.Response, 0, len(batch))
	for _, req := range batch {
		responses = append(responses, tagging.Response{
			EntityID: req.EntityID,
			Tags:     []string{fmt.Sprintf("mock-%s", req.EntityType)},
		})
	}
	return responses, nil
}

// CallCount returns the number of times GenerateTags was called.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Batches returns the batches GenerateTags was called with, in order.
func (m *MockBackend) Batches() [][]tagging.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// Reset clears the recorded calls and custom functions.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.batches = nil
	m.GenerateTagsFunc = nil
}
