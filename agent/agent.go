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

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/kb"
	"github.com/civintel/knowbase/storage"
)

// Retriever is the search surface the agent layer builds on.
type Retriever interface {
	Search(ctx context.Context, req kb.SearchRequest) (*kb.SearchResponse, error)
}

// DocumentContent is a document record with its full reconstructed text.
type DocumentContent struct {
	Doc  core.Document
	Text string
}

// SearchedDocument pairs one ranked hit with the full text of its document.
type SearchedDocument struct {
	Hit  core.SearchHit
	Text string
}

// SearchReadResult carries the search response plus loaded document texts,
// one per distinct document among the hits, in hit order.
type SearchReadResult struct {
	Response  *kb.SearchResponse
	Documents []SearchedDocument
}

// DocumentSummary is the metadata card for one document.
type DocumentSummary struct {
	Doc        core.Document
	ChunkCount int
	TokenCount int
}

// Service is the read-only access layer exposed to agents. It never writes
// and it refuses to resolve paths outside the knowledge-base root.
type Service struct {
	store     storage.MetadataStore
	retriever Retriever
	root      string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

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

// New creates an agent access service rooted at root; path lookups outside
// that directory are denied.
func New(store storage.MetadataStore, retriever Retriever, root string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("metadata store required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	if resolved, symErr := filepath.EvalSymlinks(abs); symErr == nil {
		abs = resolved
	}

	s := &Service{
		store:     store,
		retriever: retriever,
		root:      abs,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ReadByID returns a document and its full text.
func (s *Service) ReadByID(ctx context.Context, docID int64) (*DocumentContent, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.GetChunks(ctx, docID)
	if err != nil {
		return nil, err
	}

	return &DocumentContent{Doc: *doc, Text: mergeChunkTexts(chunks)}, nil
}

// ReadByPath resolves a file path inside the knowledge-base root and returns
// the document ingested from it. Paths escaping the root are denied with
// core.ErrPathAccessDenied before any lookup happens.
func (s *Service) ReadByPath(ctx context.Context, path string) (*DocumentContent, error) {
	canonical, err := s.canonicalize(path)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetDocumentByPath(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return s.ReadByID(ctx, doc.ID)
}

// SearchAndRead runs a retrieval query and loads the full text of each
// distinct document among the hits.
func (s *Service) SearchAndRead(ctx context.Context, query string, limit int, filter core.Filter) (*SearchReadResult, error) {
	response, err := s.retriever.Search(ctx, kb.SearchRequest{Query: query, Limit: limit, Filter: filter})
	if err != nil {
		return nil, err
	}

	result := &SearchReadResult{Response: response}
	seen := make(map[int64]bool, len(response.Hits))
	for _, hit := range response.Hits {
		if seen[hit.DocID] {
			continue
		}
		seen[hit.DocID] = true

		content, readErr := s.ReadByID(ctx, hit.DocID)
		if readErr != nil {
			s.logger.Warn("failed to load hit document", "docID", hit.DocID, "err", readErr)
			continue
		}
		result.Documents = append(result.Documents, SearchedDocument{Hit: hit, Text: content.Text})
	}
	return result, nil
}

// ListDocuments returns document records matching the filter, newest first.
func (s *Service) ListDocuments(ctx context.Context, filter core.Filter, limit int) ([]*core.Document, error) {
	return s.store.ListDocuments(ctx, filter, limit)
}

// Summary returns the metadata card for one document without its text.
func (s *Service) Summary(ctx context.Context, docID int64) (*DocumentSummary, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.GetChunks(ctx, docID)
	if err != nil {
		return nil, err
	}

	tokens := 0
	for _, chunk := range chunks {
		tokens += chunk.TokenCount
	}

	return &DocumentSummary{Doc: *doc, ChunkCount: len(chunks), TokenCount: tokens}, nil
}

// canonicalize resolves path to the same canonical form ingestion stores,
// then verifies the result stays under the knowledge-base root.
func (s *Service) canonicalize(path string) (string, error) {
	abs, err := core.CanonicalPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrPathAccessDenied, path)
	}

	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		s.logger.Warn("denied path outside knowledge base root", "path", path)
		return "", fmt.Errorf("%w: %s", core.ErrPathAccessDenied, path)
	}
	return abs, nil
}

// mergeChunkTexts reconstructs document text from ordered chunks, trimming
// the word overlap each chunk shares with its predecessor.
func mergeChunkTexts(chunks []*core.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	merged := strings.Fields(chunks[0].Text)
	for _, chunk := range chunks[1:] {
		words := strings.Fields(chunk.Text)

		// Longest suffix of merged that prefixes the next chunk.
		window := len(merged)
		if len(words) < window {
			window = len(words)
		}
		overlap := 0
		for n := window; n > 0; n-- {
			if wordsEqual(merged[len(merged)-n:], words[:n]) {
				overlap = n
				break
			}
		}
		merged = append(merged, words[overlap:]...)
	}
	return strings.Join(merged, " ")
}

func wordsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
