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

package index

import (
	"context"
	"errors"

	"github.com/civintel/knowbase/core"
)

// ErrUnavailable indicates the index cannot serve requests, typically because
// it is closed or was never configured.
var ErrUnavailable = errors.New("vector index unavailable")

// Entry is one indexed chunk vector with the metadata needed for hard
// filtering at search time. Vectors are stored unit-normalized so cosine
// similarity reduces to a dot product.
type Entry struct {
	ChunkID      uint64
	DocID        uint64
	Jurisdiction string
	Industry     string
	DocType      string
	Vector       []float32
}

// Match is one similarity result.
type Match struct {
	ChunkID    int64
	Similarity float64
}

// VectorIndex stores chunk embeddings and answers nearest-neighbor queries.
// Implementations must be thread-safe. Callers check Available before issuing
// operations and fall back to lexical-only search when it reports false.
type VectorIndex interface {
	// Upsert stores or replaces the entry for a chunk.
	Upsert(ctx context.Context, entry *Entry) error

	// Search returns up to k chunk matches ordered by descending cosine
	// similarity, restricted to entries passing the metadata filter.
	Search(ctx context.Context, vector []float32, k int, filter core.Filter) ([]Match, error)

	// Delete removes the entries for the given chunk IDs. Missing IDs are
	// not an error.
	Delete(ctx context.Context, chunkIDs ...int64) error

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int64, error)

	// Available reports whether the index can serve requests.
	Available() bool

	// Close closes the index and releases resources.
	Close() error
}
