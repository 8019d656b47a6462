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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/index"
	"github.com/civintel/knowbase/storage"
)

// Ingest validates, scans, chunks, stores, and indexes one document.
//
// Validation and security failures abort with an error. Everything past the
// store write degrades instead: embedding or index failures leave chunks
// pending or failed and the result reports partially-indexed, to be repaired
// by a later backfill sweep. Re-ingesting identical content returns the
// existing document with Duplicate set and writes nothing. A quality
// assessment rides along on the result; it is advisory and never blocks
// storage.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrEmptyContent)
	}
	if len(req.Text) > s.config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", core.ErrValidation, s.config.MaxUploadBytes)
	}

	report := s.validator.Scan(req.Text)
	if report.Blocked() {
		s.logger.Warn("document rejected by security scan",
			"title", req.Title, "findings", len(report.Findings))
		return nil, fmt.Errorf("%w: document contains high-risk content", core.ErrSecurityRejection)
	}
	if len(report.Findings) > 0 {
		s.logger.Info("redacted suspicious spans from document",
			"title", req.Title, "findings", len(report.Findings))
	}
	text := report.Sanitized

	hash := core.HashContent(text)
	if existing, err := s.store.GetDocumentByHash(ctx, hash); err == nil {
		return s.duplicateResult(ctx, existing, len(report.Findings))
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	segments, err := s.splitter.Split(text)
	if err != nil {
		return nil, err
	}

	title, description := s.describe(ctx, req, text)
	if err := core.ValidateDocumentInput(title, text); err != nil {
		return nil, err
	}

	quality := assessQuality(text, segments, title, req)
	if !quality.Passed {
		s.logger.Warn("document failed quality assessment",
			"title", title, "score", quality.Score, "issues", quality.Issues)
	}

	// Store one canonical form of the file path so later path lookups,
	// which canonicalize the same way, find the document no matter how the
	// path was spelled at upload.
	filePath := req.FilePath
	if filePath != "" {
		if canonical, pathErr := core.CanonicalPath(filePath); pathErr == nil {
			filePath = canonical
		}
	}

	doc := &core.Document{
		Title:        title,
		Jurisdiction: req.Jurisdiction,
		Industry:     req.Industry,
		DocType:      req.DocType,
		SourceURL:    req.SourceURL,
		FilePath:     filePath,
		ContentHash:  hash,
		FileSize:     int64(len(text)),
		Description:  description,
	}

	chunks := make([]*core.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = &core.Chunk{
			Ordinal:         seg.Ordinal,
			Text:            seg.Text,
			TokenCount:      seg.TokenCount,
			EmbeddingStatus: core.EmbeddingPending,
		}
	}

	if err := s.store.AddDocument(ctx, doc, chunks); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Concurrent ingest of the same content won the race.
			if existing, lookupErr := s.store.GetDocumentByHash(ctx, hash); lookupErr == nil {
				return s.duplicateResult(ctx, existing, len(report.Findings))
			}
		}
		return nil, err
	}

	indexed := s.embedAndIndex(ctx, doc, chunks)

	result := &IngestResult{
		DocID:             doc.ID,
		ChunkCount:        len(chunks),
		IndexedChunks:     indexed,
		EmbeddingCoverage: float64(indexed) / float64(len(chunks)),
		SecurityFindings:  len(report.Findings),
		Quality:           quality,
		State:             StatePartiallyIndexed,
	}
	if indexed == len(chunks) {
		result.State = StateComplete
	}

	s.logger.Info("document ingested",
		"docID", doc.ID, "chunks", len(chunks), "indexed", indexed, "state", result.State)
	return result, nil
}

// describe resolves the document title and description. The summarizer is an
// unreliable collaborator; its failure falls back to the request title or a
// name derived from the file path.
func (s *Service) describe(ctx context.Context, req IngestRequest, text string) (title, description string) {
	title = strings.TrimSpace(req.Title)

	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	summary, err := s.provider.Summarizer().Summarize(callCtx, text)
	if err != nil {
		s.logger.Warn("summarization failed, falling back", "err", err)
		if title == "" {
			title = titleFromPath(req.FilePath)
		}
		return title, ""
	}

	if title == "" {
		title = strings.TrimSpace(summary.Title)
	}
	if title == "" {
		title = titleFromPath(req.FilePath)
	}
	return title, strings.TrimSpace(summary.Description)
}

// embedAndIndex embeds chunks in bounded-concurrency batches and upserts the
// vectors. Returns how many chunks reached the indexed state. Failures mark
// chunks failed and are isolated per batch.
func (s *Service) embedAndIndex(ctx context.Context, doc *core.Document, chunks []*core.Chunk) int {
	if !s.idx.Available() {
		s.logger.Warn("vector index unavailable, chunks left pending", "docID", doc.ID)
		return 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		indexed int
	)

	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			n := s.processBatch(ctx, doc, batch)
			mu.Lock()
			indexed += n
			mu.Unlock()
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool rejected the task; run it inline rather than drop it.
			task()
		}
	}
	wg.Wait()

	return indexed
}

// processBatch embeds one batch and indexes each chunk, updating embedding
// states as it goes.
func (s *Service) processBatch(ctx context.Context, doc *core.Document, batch []*core.Chunk) int {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	vectors, err := s.embedder.EmbedTexts(callCtx, texts)
	if err != nil || len(vectors) != len(batch) {
		if err == nil {
			err = fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
		}
		s.logger.Warn("embedding batch failed", "docID", doc.ID, "size", len(batch), "err", err)
		s.markChunks(ctx, batch, core.EmbeddingFailed)
		return 0
	}

	indexed := 0
	for i, chunk := range batch {
		entry := &index.Entry{
			ChunkID:      uint64(chunk.ID),
			DocID:        uint64(doc.ID),
			Jurisdiction: doc.Jurisdiction,
			Industry:     doc.Industry,
			DocType:      doc.DocType,
			Vector:       vectors[i],
		}

		status := core.EmbeddingIndexed
		if upsertErr := s.idx.Upsert(ctx, entry); upsertErr != nil {
			s.logger.Warn("index upsert failed", "chunkID", chunk.ID, "err", upsertErr)
			status = core.EmbeddingFailed
		}
		if markErr := s.store.SetChunkStatus(ctx, chunk.ID, status); markErr != nil {
			s.logger.Warn("failed to update chunk status", "chunkID", chunk.ID, "err", markErr)
			continue
		}
		if status == core.EmbeddingIndexed {
			indexed++
		}
	}
	return indexed
}

func (s *Service) markChunks(ctx context.Context, chunks []*core.Chunk, status core.EmbeddingStatus) {
	for _, chunk := range chunks {
		if err := s.store.SetChunkStatus(ctx, chunk.ID, status); err != nil {
			s.logger.Warn("failed to update chunk status", "chunkID", chunk.ID, "err", err)
		}
	}
}

// duplicateResult builds the result for a re-ingested document from its
// stored chunks.
func (s *Service) duplicateResult(ctx context.Context, doc *core.Document, findings int) (*IngestResult, error) {
	chunks, err := s.store.GetChunks(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	indexed := 0
	for _, chunk := range chunks {
		if chunk.EmbeddingStatus == core.EmbeddingIndexed {
			indexed++
		}
	}

	result := &IngestResult{
		DocID:            doc.ID,
		Duplicate:        true,
		ChunkCount:       len(chunks),
		IndexedChunks:    indexed,
		SecurityFindings: findings,
		State:            StatePartiallyIndexed,
	}
	if len(chunks) > 0 {
		result.EmbeddingCoverage = float64(indexed) / float64(len(chunks))
	}
	if indexed == len(chunks) && len(chunks) > 0 {
		result.State = StateComplete
	}

	s.logger.Info("duplicate content, returning existing document", "docID", doc.ID)
	return result, nil
}

// titleFromPath derives a human-readable title from a file name.
func titleFromPath(path string) string {
	if path == "" {
		return "Untitled Document"
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)

	words := strings.Fields(base)
	if len(words) == 0 {
		return "Untitled Document"
	}
	for i, word := range words {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
