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

import "errors"

var (
	// ErrNoSnapshots indicates the input directory holds no snapshot
	// files. Running collect first fixes this.
	ErrNoSnapshots = errors.New("no snapshots found")

	// ErrMalformedSnapshot indicates a snapshot file is not valid JSON or
	// lacks its identity fields.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrConfigRequired indicates the orchestrator was constructed
	// without a configuration.
	ErrConfigRequired = errors.New("configuration is required")
)
