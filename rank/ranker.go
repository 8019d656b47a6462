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

package rank

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/civintel/knowbase/core"
)

const (
	// DefaultVectorWeight is the semantic share of the hybrid score.
	DefaultVectorWeight = 0.85
	// DefaultLexicalWeight is the lexical share of the hybrid score.
	DefaultLexicalWeight = 0.15
)

// Candidate is one chunk under consideration, with its vector similarity
// already computed (zero when the chunk has no usable embedding).
type Candidate struct {
	Chunk       core.Chunk
	Doc         core.Document
	VectorScore float64
}

// Ranker combines vector similarity and lexical overlap into a single hybrid
// score and orders candidates deterministically.
type Ranker struct {
	vectorWeight  float64
	lexicalWeight float64
	logger        *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithWeights sets the semantic and lexical shares of the hybrid score.
// The weights must be non-negative and sum to 1 so scores stay in [0,1].
// Defaults are DefaultVectorWeight and DefaultLexicalWeight.
func WithWeights(vector, lexical float64) Option {
	return func(r *Ranker) error {
		if vector < 0 || lexical < 0 {
			return fmt.Errorf("weights must be non-negative, got %f and %f", vector, lexical)
		}
		if math.Abs(vector+lexical-1.0) > 1e-9 {
			return fmt.Errorf("weights must sum to 1, got %f", vector+lexical)
		}
		r.vectorWeight = vector
		r.lexicalWeight = lexical
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a Ranker with the given options.
func New(opts ...Option) (*Ranker, error) {
	r := &Ranker{
		vectorWeight:  DefaultVectorWeight,
		lexicalWeight: DefaultLexicalWeight,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Rank scores every candidate against the query and returns the top k hits in
// descending score order. Ties break toward the more recently created
// document, then toward the lower chunk id, so identical inputs always yield
// identical orderings. Metadata filtering happens before candidates reach
// this point; Rank never drops a candidate except by the k cutoff.
func (r *Ranker) Rank(query string, candidates []Candidate, k int) []core.SearchHit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	hits := make([]core.SearchHit, 0, len(candidates))
	for _, cand := range candidates {
		vectorScore := clamp01(cand.VectorScore)
		lexicalScore := clamp01(LexicalScore(query, cand.Chunk.Text))
		score := clamp01(r.vectorWeight*vectorScore + r.lexicalWeight*lexicalScore)

		hits = append(hits, core.SearchHit{
			DocID:        cand.Doc.ID,
			ChunkID:      cand.Chunk.ID,
			Text:         cand.Chunk.Text,
			Score:        score,
			VectorScore:  vectorScore,
			LexicalScore: lexicalScore,
			Title:        cand.Doc.Title,
			Jurisdiction: cand.Doc.Jurisdiction,
			Industry:     cand.Doc.Industry,
			DocType:      cand.Doc.DocType,
			SourceURL:    cand.Doc.SourceURL,
			FilePath:     cand.Doc.FilePath,
			CreatedAt:    cand.Doc.CreatedAt,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
