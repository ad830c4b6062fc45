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


// Package history stores run metadata records across pipeline executions,
// backing the status command.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/infradocs/core"
)

const runKeyPrefix = "run:"

// ErrNoRuns indicates the history store holds no run records yet.
var ErrNoRuns = errors.New("no runs recorded")

// Store persists one record per pipeline run in an embedded BadgerDB.
// Keys are run:<timestamp>:<run id>, so lexical key order is chronological.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens (or creates) the history database at the given path.
// inMemory is for tests.
func Open(path string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default().With("component", "history")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "history"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one run's metadata. Records are write-once: a run id is
// never updated after the fact.
func (s *Store) Record(meta *core.RunMetadata) error {
	if meta.RunID == "" {
		return fmt.Errorf("run metadata has no run id")
	}

	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling run metadata: %w", err)
	}

	key := runKey(meta)
	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("recording run %s: %w", meta.RunID, err)
	}

	s.logger.Debug("recorded run", "run_id", meta.RunID)
	return nil
}

// Latest returns the most recent run record.
func (s *Store) Latest() (*core.RunMetadata, error) {
	var latest *core.RunMetadata

	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration needs a seek past the prefix range.
		iter.Seek([]byte(runKeyPrefix + "\xff"))
		if !iter.ValidForPrefix([]byte(runKeyPrefix)) {
			return ErrNoRuns
		}

		return iter.Item().Value(func(value []byte) error {
			latest = &core.RunMetadata{}
			return json.Unmarshal(value, latest)
		})
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// List returns up to limit run records, most recent first. limit <= 0
// returns all records.
func (s *Store) List(limit int) ([]*core.RunMetadata, error) {
	var runs []*core.RunMetadata

	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek([]byte(runKeyPrefix + "\xff")); iter.ValidForPrefix([]byte(runKeyPrefix)); iter.Next() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			err := iter.Item().Value(func(value []byte) error {
				meta := &core.RunMetadata{}
				if err := json.Unmarshal(value, meta); err != nil {
					return err
				}
				runs = append(runs, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func runKey(meta *core.RunMetadata) string {
	return fmt.Sprintf("%s%s:%s", runKeyPrefix, meta.Timestamp.UTC().Format("20060102T150405.000000000"), meta.RunID)
}
