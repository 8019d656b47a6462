// Copyright 2026 Civintel Labs
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

package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/index"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Index is a BadgerDB-backed vector index. Entries are stored with
// unit-normalized vectors so cosine similarity is a plain dot product.
type Index struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ index.VectorIndex = (*Index)(nil)

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

// Open opens a BadgerDB-backed index at the specified path.
// Creates the directory if it doesn't exist. When inMemory is true, path is
// ignored and nothing is persisted.
func Open(path string, inMemory bool) (*Index, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(path, 0o755); err != nil {
					return nil, err
				}
				info, err = os.Stat(path)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Index{
		db:     db,
		logger: slog.Default().With("component", "badger-index"),
	}, nil
}

// Degraded returns an index with no backing database. Available reports
// false and every operation returns index.ErrUnavailable, letting the rest
// of the system run lexical-only when the real store failed to open.
func Degraded() *Index {
	return &Index{logger: slog.Default().With("component", "badger-index")}
}

// Close closes the underlying database, if one was opened.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Available reports whether the index can serve requests.
func (ix *Index) Available() bool {
	return ix.db != nil && !ix.db.IsClosed()
}

// withTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (ix *Index) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := ix.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// Upsert stores or replaces the entry for a chunk. The vector is normalized
// to unit length before storage.
func (ix *Index) Upsert(ctx context.Context, entry *index.Entry) error {
	if !ix.Available() {
		return index.ErrUnavailable
	}
	if entry == nil || len(entry.Vector) == 0 {
		return fmt.Errorf("entry must carry a non-empty vector")
	}

	stored := *entry
	stored.Vector = NormalizeVector(entry.Vector)

	return ix.withTx(func(tx *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tx.Set(makeEntryKey(stored.ChunkID), MarshalEntry(&stored)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scans all entries, filters on metadata, and returns the top k by
// cosine similarity.
func (ix *Index) Search(ctx context.Context, vector []float32, k int, filter core.Filter) ([]index.Match, error) {
	if !ix.Available() {
		return nil, index.ErrUnavailable
	}
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	query := NormalizeVector(vector)
	var matches []index.Match

	err := ix.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entry *index.Entry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}

			if !filter.Matches(entry.Jurisdiction, entry.Industry, entry.DocType) {
				continue
			}

			matches = append(matches, index.Match{
				ChunkID:    int64(entry.ChunkID),
				Similarity: clamp01(dotProduct(query, entry.Vector)),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, chunk id ascending for stable order
	slices.SortFunc(matches, func(a, b index.Match) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		case a.ChunkID < b.ChunkID:
			return -1
		case a.ChunkID > b.ChunkID:
			return 1
		default:
			return 0
		}
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes the entries for the given chunk IDs.
func (ix *Index) Delete(ctx context.Context, chunkIDs ...int64) error {
	if !ix.Available() {
		return index.ErrUnavailable
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	return ix.withTx(func(tx *badger.Txn) error {
		for _, id := range chunkIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := tx.Delete(makeEntryKey(uint64(id))); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Count returns the number of entries in the index.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	if !ix.Available() {
		return 0, index.ErrUnavailable
	}

	var count int64
	err := ix.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// clamp01 clips a similarity score into [0, 1]. Opposed vectors produce
// negative dot products, which rank as zero relevance.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float64 {
	var sum float64
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	// Can't normalize zero vector
	if magnitude == 0 {
		return make([]float32, len(v))
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
