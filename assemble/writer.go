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


package assemble

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/infradocs/core"
)

// Writer persists finished documents under a run-scoped output directory.
// Each entity type gets its own JSONL stream; appends are whole lines
// serialized by a per-stream mutex, so concurrent processors never interleave
// partial records.
type Writer struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	streams map[core.EntityType]*stream
}

type stream struct {
	mu   sync.Mutex
	file *os.File
}

// NewWriter creates the run directory under baseDir and returns a writer
// bound to it. The directory name is unique per run:
// run_<timestamp>_<short id>.
func NewWriter(baseDir string) (*Writer, error) {
	runID := uuid.NewString()[:8]
	dir := filepath.Join(baseDir, fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102_150405"), runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &Writer{
		dir:     dir,
		logger:  slog.Default().With("component", "document-writer"),
		streams: make(map[core.EntityType]*stream),
	}, nil
}

// Dir returns the absolute run directory this writer owns.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteDocument appends one document to its type's JSONL stream.
func (w *Writer) WriteDocument(doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	line, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", doc.ID, err)
	}

	s, err := w.streamFor(doc.Type)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing document %s: %w", doc.ID, err)
	}
	return nil
}

// WriteRunMetadata emits the run summary as run_metadata.json.
func (w *Writer) WriteRunMetadata(meta *core.RunMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run metadata: %w", err)
	}
	path := filepath.Join(w.dir, "run_metadata.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run metadata: %w", err)
	}
	w.logger.Debug("wrote run metadata", "path", path)
	return nil
}

// Close flushes and closes every open stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for entityType, s := range w.streams {
		s.mu.Lock()
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s stream: %w", entityType, err)
		}
		s.mu.Unlock()
	}
	w.streams = make(map[core.EntityType]*stream)
	return firstErr
}

func (w *Writer) streamFor(entityType core.EntityType) (*stream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s, ok := w.streams[entityType]; ok {
		return s, nil
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%ss.jsonl", entityType))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", entityType, err)
	}

	s := &stream{file: file}
	w.streams[entityType] = s
	return s, nil
}

// IntermediateWriter persists per-entity stage outputs for debugging. Its
// failures are logged and swallowed so debug output can never fail a run.
type IntermediateWriter struct {
	dir     string
	enabled bool
	logger  *slog.Logger
}

// NewIntermediateWriter returns a writer that stores intermediate snapshots
// under <runDir>/debug. A disabled writer is a no-op.
func NewIntermediateWriter(runDir string, enabled bool) *IntermediateWriter {
	return &IntermediateWriter{
		dir:     filepath.Join(runDir, "debug"),
		enabled: enabled,
		logger:  slog.Default().With("component", "intermediate-writer"),
	}
}

// Write stores the intermediate stage outputs for one entity.
func (iw *IntermediateWriter) Write(id string, payload any) {
	if !iw.enabled {
		return
	}

	if err := os.MkdirAll(iw.dir, 0o755); err != nil {
		iw.logger.Warn("failed to create debug directory", "err", err)
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		iw.logger.Warn("failed to marshal intermediate output", "id", id, "err", err)
		return
	}

	path := filepath.Join(iw.dir, fmt.Sprintf("%s_intermediate.json", id))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		iw.logger.Warn("failed to write intermediate output", "id", id, "err", err)
	}
}
