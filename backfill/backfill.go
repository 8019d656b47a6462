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

package backfill

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/civintel/knowbase/ai"
	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/index"
	"github.com/civintel/knowbase/storage"
)

// Config holds configuration for the backfill sweep.
type Config struct {
	// BatchSize is the number of chunks to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Report summarizes the outcome of a sweep.
type Report struct {
	Scanned int
	Indexed int
	Failed  int
}

// Sweeper finds chunks whose embeddings are pending or failed, embeds them,
// and writes the vectors to the index. Ingest marks chunks failed rather than
// aborting when the embedding service is degraded; the sweeper repairs that
// backlog later.
type Sweeper struct {
	store     storage.MetadataStore
	idx       index.VectorIndex
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewSweeper creates a new sweeper.
// progress: where to write progress output (typically os.Stderr)
func NewSweeper(store storage.MetadataStore, embedder ai.Embedder, idx index.VectorIndex, config *Config, progress io.Writer) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(store, embedder, idx, config.MaxRetries, config.RetryDelay)

	return &Sweeper{
		store:     store,
		idx:       idx,
		config:    config,
		progress:  progress,
		processor: processor,
	}
}

// Run executes one backfill sweep over all pending and failed chunks.
// Progress is reported to the configured writer.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	backlog := int(stats.Chunks - stats.IndexedChunks)
	if backlog == 0 {
		fmt.Fprintf(s.progress, "No chunks awaiting embedding (0 chunks)\n")
		return &Report{}, nil
	}

	fmt.Fprintf(s.progress, "Starting backfill of %d chunks (batch size: %d)\n",
		backlog, s.config.BatchSize)

	tracker := NewProgress(s.progress, backlog, s.config.ReportInterval)
	tracker.Start()

	report := &Report{}
	for _, status := range []core.EmbeddingStatus{core.EmbeddingPending, core.EmbeddingFailed} {
		if err := s.sweep(ctx, status, tracker, report); err != nil {
			return report, err
		}
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(s.progress, "Backfill complete. Indexed %d of %d chunks in %v (%d failed)\n",
		report.Indexed, report.Scanned, elapsed.Round(time.Second), report.Failed)

	return report, nil
}

// sweep drains one embedding state. Chunks that fail again keep their failed
// status; the attempted set stops the loop from refetching them forever.
func (s *Sweeper) sweep(ctx context.Context, status core.EmbeddingStatus, tracker *Progress, report *Report) error {
	attempted := make(map[int64]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Chunks that fail again keep their status and reappear at the
		// front of the oldest-first fetch, so widen the limit by the
		// attempted count to reach past them.
		chunks, err := s.store.GetChunksByStatus(ctx, status, s.config.BatchSize+len(attempted))
		if err != nil {
			return fmt.Errorf("failed to query chunks: %w", err)
		}

		batch := make([]*core.Chunk, 0, s.config.BatchSize)
		for _, chunk := range chunks {
			if attempted[chunk.ID] {
				continue
			}
			attempted[chunk.ID] = true
			batch = append(batch, chunk)
			if len(batch) == s.config.BatchSize {
				break
			}
		}
		if len(batch) == 0 {
			return nil
		}

		indexed, failed, err := s.processor.Process(ctx, batch)
		report.Scanned += len(batch)
		report.Indexed += indexed
		report.Failed += failed
		if err != nil {
			return err
		}

		tracker.Add(len(batch))
	}
}
