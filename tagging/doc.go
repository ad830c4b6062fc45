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


// Package tagging assigns semantic tags to infrastructure entities.
//
// Tags describe what an entity is for ("caching", "reverse proxy",
// "monitoring") rather than how it is currently configured, which makes
// documents retrievable by intent. Two tag sources exist:
//
//   - Backend: an LLM classifies each entity by answering four fixed
//     questions (generic name, problem solved, infrastructure role,
//     system component).
//   - Rules: a deterministic keyword vocabulary over the entity's
//     properties.
//
// The Batcher composes the two. It drives the backend in batches and
// guarantees that every entity ends up with a non-empty tag set: whenever a
// backend call fails, times out, or returns an unparsable or incomplete
// response, the affected entities fall back to rule tagging. The chosen
// source is recorded on each TagSet.
//
// # Implementation Packages
//
// The tagging package includes two backend sub-packages:
//
//   - tagging/llm: Production backend using OpenAI-compatible or Ollama
//     chat APIs
//   - tagging/mock: Test double for unit testing without external
//     dependencies
package tagging
