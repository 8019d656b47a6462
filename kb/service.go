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

package kb

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/civintel/knowbase/ai"
	"github.com/civintel/knowbase/backfill"
	"github.com/civintel/knowbase/chunker"
	"github.com/civintel/knowbase/guard"
	"github.com/civintel/knowbase/index"
	"github.com/civintel/knowbase/rank"
	"github.com/civintel/knowbase/security"
	"github.com/civintel/knowbase/storage"
)

// Config holds the orchestrator's tunables.
type Config struct {
	// MaxUploadBytes caps document text size at ingest.
	MaxUploadBytes int

	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int

	// CallTimeout bounds each embedder and index call.
	CallTimeout time.Duration

	// WidthFactor scales the candidate pool relative to the requested
	// result count before ranking.
	WidthFactor int

	// MaxRetries and RetryDelay drive embedding backoff.
	MaxRetries int
	RetryDelay time.Duration

	// SnippetLength caps hit text returned from Search, in bytes.
	SnippetLength int

	// DefaultLimit and MaxLimit bound the search result count.
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxUploadBytes: 10 << 20,
		BatchSize:      64,
		CallTimeout:    30 * time.Second,
		WidthFactor:    4,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		SnippetLength:  1200,
		DefaultLimit:   10,
		MaxLimit:       50,
	}
}

// Service orchestrates ingestion and retrieval across the metadata store,
// the vector index, and the AI provider. The index and provider are treated
// as unreliable; their failures degrade behavior instead of failing requests
// wherever the data allows it.
type Service struct {
	store     storage.MetadataStore
	idx       index.VectorIndex
	provider  ai.Provider
	embedder  ai.Embedder
	splitter  *chunker.Chunker
	validator *security.Validator
	scope     *guard.Guard
	ranker    *rank.Ranker
	pool      *ants.Pool
	config    *Config
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) error {
		if config != nil {
			s.config = config
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(s *Service) error {
		if c != nil {
			s.splitter = c
		}
		return nil
	}
}

// WithGuard replaces the default domain guard.
func WithGuard(g *guard.Guard) Option {
	return func(s *Service) error {
		if g != nil {
			s.scope = g
		}
		return nil
	}
}

// WithRanker replaces the default hybrid ranker.
func WithRanker(r *rank.Ranker) Option {
	return func(s *Service) error {
		if r != nil {
			s.ranker = r
		}
		return nil
	}
}

// WithValidator replaces the default security validator.
func WithValidator(v *security.Validator) Option {
	return func(s *Service) error {
		if v != nil {
			s.validator = v
		}
		return nil
	}
}

// New creates a retrieval service.
func New(store storage.MetadataStore, idx index.VectorIndex, provider ai.Provider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	splitter, err := chunker.New()
	if err != nil {
		return nil, err
	}
	validator, err := security.New()
	if err != nil {
		return nil, err
	}
	scope, err := guard.New()
	if err != nil {
		return nil, err
	}
	ranker, err := rank.New()
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:     store,
		idx:       idx,
		provider:  provider,
		splitter:  splitter,
		validator: validator,
		scope:     scope,
		ranker:    ranker,
		pool:      pool,
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	s.embedder = ai.NewRetryEmbedder(provider.Embedder(), s.config.MaxRetries, s.config.RetryDelay)

	return s, nil
}

// Stats returns a corpus snapshot with collaborator availability.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stored, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	status := ServiceStatus{
		VectorIndexAvailable: s.idx.Available(),
		EmbeddingsAvailable:  s.provider.Available(),
	}
	if status.VectorIndexAvailable {
		entries, countErr := s.idx.Count(ctx)
		if countErr != nil {
			s.logger.Warn("failed to count index entries", "err", countErr)
		} else {
			status.VectorEntries = entries
		}
	}

	return &Stats{
		Documents:         stored.Documents,
		Chunks:            stored.Chunks,
		IndexedChunks:     stored.IndexedChunks,
		EmbeddingCoverage: stored.EmbeddingCoverage,
		Services:          status,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// Delete removes a document, its chunks, and its index entries.
// Returns storage.ErrNotFound when the document does not exist.
func (s *Service) Delete(ctx context.Context, docID int64) error {
	chunks, err := s.store.GetChunks(ctx, docID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	if !s.idx.Available() || len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]int64, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}
	if err := s.idx.Delete(ctx, chunkIDs...); err != nil {
		// Metadata is gone; orphaned vectors can never be joined back to a
		// document, so log and move on.
		s.logger.Warn("failed to delete index entries", "docID", docID, "err", err)
	}
	return nil
}

// Backfill runs one embedding backfill sweep, re-attempting chunks whose
// embeddings are pending or failed. Skipped entirely when the index is
// unavailable.
func (s *Service) Backfill(ctx context.Context, progress io.Writer) (*backfill.Report, error) {
	if !s.idx.Available() {
		return nil, index.ErrUnavailable
	}

	// The sweeper carries its own retry; hand it the bare embedder.
	sweeper := backfill.NewSweeper(s.store, s.provider.Embedder(), s.idx, &backfill.Config{
		BatchSize:      s.config.BatchSize,
		ReportInterval: 100,
		MaxRetries:     s.config.MaxRetries,
		RetryDelay:     s.config.RetryDelay,
	}, progress)

	return sweeper.Run(ctx)
}

// Release frees the worker pool. The service should not be used afterward.
func (s *Service) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
