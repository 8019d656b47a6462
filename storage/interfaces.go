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

package storage

import (
	"context"

	"github.com/civintel/knowbase/core"
)

// ChunkWithDoc pairs a chunk with its owning document's metadata, the shape
// needed by ranking and citation display.
type ChunkWithDoc struct {
	Chunk core.Chunk
	Doc   core.Document
}

// Stats summarizes corpus size and embedding coverage.
type Stats struct {
	Documents         int64
	Chunks            int64
	IndexedChunks     int64
	EmbeddingCoverage float64
}

// MetadataStore is the authoritative transactional store for documents and
// their chunks. Implementations must be thread-safe; concurrent writers are
// serialized through transaction isolation, so two simultaneous uploads never
// collide on chunk ordinals or silently duplicate a content hash.
type MetadataStore interface {
	// AddDocument inserts a document and all of its chunks in one
	// transaction. Document and chunk IDs are assigned by the store;
	// CreatedAt is set when zero. Returns ErrDuplicateKey when a document
	// with the same content hash already exists.
	AddDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, id int64) (*core.Document, error)

	// GetDocumentByHash retrieves a document by content hash.
	// Returns ErrNotFound if no document has that hash.
	GetDocumentByHash(ctx context.Context, hash string) (*core.Document, error)

	// GetDocumentByPath retrieves a document by its stored file path.
	// Returns ErrNotFound if no document has that path.
	GetDocumentByPath(ctx context.Context, path string) (*core.Document, error)

	// ListDocuments returns documents matching the filter, newest first,
	// up to limit.
	ListDocuments(ctx context.Context, filter core.Filter, limit int) ([]*core.Document, error)

	// DeleteDocument removes a document and cascades to its chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id int64) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetChunk(ctx context.Context, id int64) (*core.Chunk, error)

	// GetChunks returns all chunks of a document in ordinal order.
	GetChunks(ctx context.Context, docID int64) ([]*core.Chunk, error)

	// GetChunksByIDs returns the chunks with the given IDs joined with
	// their documents. Missing IDs are skipped, not an error.
	GetChunksByIDs(ctx context.Context, ids []int64) ([]*ChunkWithDoc, error)

	// GetChunksByStatus returns up to limit chunks in the given embedding
	// state, oldest first. Used by the backfill sweep.
	GetChunksByStatus(ctx context.Context, status core.EmbeddingStatus, limit int) ([]*core.Chunk, error)

	// SetChunkStatus updates one chunk's embedding state.
	// Returns ErrNotFound if the chunk doesn't exist.
	SetChunkStatus(ctx context.Context, chunkID int64, status core.EmbeddingStatus) error

	// SearchLexical returns chunks whose text contains any of the given
	// terms, restricted by the metadata filter, up to limit. Ordering is
	// deterministic (doc id, then chunk id). Terms are matched
	// case-insensitively.
	SearchLexical(ctx context.Context, terms []string, filter core.Filter, limit int) ([]*ChunkWithDoc, error)

	// Stats reports corpus counts and embedding coverage.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store and releases resources.
	Close() error
}
