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
	"strings"
	"unicode/utf8"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/rank"
)

// Search runs the retrieval pipeline: security scan, domain vocabulary gate,
// candidate gathering from the vector index and lexical matching, hybrid
// ranking, and a relevance-floor check on the ranked hits.
//
// Vector search is best-effort. When the index or the embedder is down the
// response carries lexical-only results with Degraded set; the request never
// fails for collaborator outages. A query that trips a high-risk security
// rule returns an empty blocked response without touching the corpus, and a
// query with no domain vocabulary is rejected before any embedding call.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := core.ValidateQuery(req.Query); err != nil {
		return nil, err
	}
	limit := core.ValidateLimit(req.Limit, s.config.DefaultLimit, s.config.MaxLimit)

	report := s.validator.Scan(req.Query)
	if report.Blocked() {
		s.logger.Warn("query blocked by security scan", "findings", len(report.Findings))
		return &SearchResponse{Blocked: true}, nil
	}
	query := report.Sanitized

	inScope, categories := s.scope.MatchesVocabulary(query)
	if !inScope {
		s.logger.Info("query matched no domain vocabulary, skipping retrieval")
		return &SearchResponse{OutOfScope: true}, nil
	}
	s.logger.Debug("query in scope", "categories", categories)

	width := s.config.WidthFactor * limit
	candidates, degraded := s.gatherCandidates(ctx, query, width, req.Filter)

	hits := s.ranker.Rank(query, candidates, limit)

	if len(hits) > 0 && s.scope.OutOfScope(hits[0].Score) {
		s.logger.Info("ranked hits under relevance floor", "bestScore", hits[0].Score)
		return &SearchResponse{OutOfScope: true, Degraded: degraded}, nil
	}

	for i := range hits {
		hits[i].Text = snippet(hits[i].Text, s.config.SnippetLength)
	}

	return &SearchResponse{Hits: hits, Degraded: degraded}, nil
}

// gatherCandidates unions vector matches with lexical matches, keyed by chunk
// ID. Lexical-only candidates carry a zero vector score; the ranker's lexical
// component still surfaces them.
func (s *Service) gatherCandidates(ctx context.Context, query string, width int, filter core.Filter) ([]rank.Candidate, bool) {
	byChunk := make(map[int64]*rank.Candidate)
	order := make([]int64, 0, width)

	vectorScores, degraded := s.vectorMatches(ctx, query, width, filter)
	if len(vectorScores.ids) > 0 {
		joined, err := s.store.GetChunksByIDs(ctx, vectorScores.ids)
		if err != nil {
			s.logger.Warn("failed to load vector candidates", "err", err)
		} else {
			for _, cd := range joined {
				byChunk[cd.Chunk.ID] = &rank.Candidate{
					Chunk:       cd.Chunk,
					Doc:         cd.Doc,
					VectorScore: vectorScores.byID[cd.Chunk.ID],
				}
				order = append(order, cd.Chunk.ID)
			}
		}
	}

	terms := rank.QueryTerms(query)
	if len(terms) > 0 {
		lexical, err := s.store.SearchLexical(ctx, terms, filter, width)
		if err != nil {
			s.logger.Warn("lexical search failed", "err", err)
		} else {
			for _, cd := range lexical {
				if _, ok := byChunk[cd.Chunk.ID]; ok {
					continue
				}
				byChunk[cd.Chunk.ID] = &rank.Candidate{Chunk: cd.Chunk, Doc: cd.Doc}
				order = append(order, cd.Chunk.ID)
			}
		}
	}

	candidates := make([]rank.Candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, *byChunk[id])
	}
	return candidates, degraded
}

type similarityset struct {
	ids  []int64
	byID map[int64]float64
}

// vectorMatches embeds the query and searches the index. Any failure along
// the way returns an empty set with degraded=true so the caller falls back
// to lexical-only retrieval.
func (s *Service) vectorMatches(ctx context.Context, query string, width int, filter core.Filter) (similarityset, bool) {
	empty := similarityset{byID: map[int64]float64{}}

	if !s.idx.Available() {
		s.logger.Warn("vector index unavailable, lexical-only search")
		return empty, true
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	vector, err := s.embedder.EmbedText(callCtx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, lexical-only search", "err", err)
		return empty, true
	}

	matches, err := s.idx.Search(ctx, vector, width, filter)
	if err != nil {
		s.logger.Warn("vector search failed, lexical-only search", "err", err)
		return empty, true
	}

	result := similarityset{
		ids:  make([]int64, 0, len(matches)),
		byID: make(map[int64]float64, len(matches)),
	}
	for _, match := range matches {
		result.ids = append(result.ids, match.ChunkID)
		result.byID[match.ChunkID] = match.Similarity
	}
	return result, false
}

// snippet truncates text to at most max bytes, cutting at a word boundary
// when one is close enough and never splitting a rune.
func snippet(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	if idx := strings.LastIndexByte(truncated, ' '); idx > max/2 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}
