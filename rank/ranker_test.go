package rank

import (
	"fmt"
	"testing"
	"time"

	"github.com/civintel/knowbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{
			name:  "perfect overlap",
			query: "workforce training",
			text:  "regional workforce training pipeline",
			want:  1.0,
		},
		{
			name:  "half overlap",
			query: "workforce housing",
			text:  "the workforce report",
			want:  0.5,
		},
		{
			name:  "no overlap",
			query: "ferry schedule",
			text:  "tax increment financing district",
			want:  0.0,
		},
		{
			name:  "stop words ignored",
			query: "the tax and the credit",
			text:  "tax credit",
			want:  1.0,
		},
		{
			name:  "punctuation trimmed",
			query: "abatement?",
			text:  "A ten-year abatement.",
			want:  1.0,
		},
		{
			name:  "stop-word-only query",
			query: "the and of",
			text:  "anything at all",
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LexicalScore(tt.query, tt.text), 1e-9)
		})
	}
}

func TestQueryTerms(t *testing.T) {
	terms := QueryTerms("The Workforce training, workforce GRANTS!")
	assert.Equal(t, []string{"workforce", "training", "grants"}, terms)

	assert.Empty(t, QueryTerms("the of and"))
}

func candidate(chunkID, docID int64, text string, vectorScore float64, createdAt time.Time) Candidate {
	return Candidate{
		Chunk:       core.Chunk{ID: chunkID, DocID: docID, Text: text},
		Doc:         core.Document{ID: docID, Title: fmt.Sprintf("doc-%d", docID), CreatedAt: createdAt},
		VectorScore: vectorScore,
	}
}

func TestRank_ScoreBounds(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	now := time.Now()
	hits := r.Rank("workforce training", []Candidate{
		// Perfect on both signals scores exactly 1.
		candidate(1, 1, "workforce training", 1.0, now),
		// No embedding, no overlap scores exactly 0.
		candidate(2, 2, "unrelated zoning text", 0.0, now),
		// Out-of-range vector similarity is clamped.
		candidate(3, 3, "workforce training", 1.7, now),
	}, 10)

	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.0, hits[len(hits)-1].Score, 1e-9)
}

func TestRank_HybridWeighting(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	hits := r.Rank("workforce", []Candidate{
		candidate(1, 1, "workforce", 0.5, time.Now()),
	}, 1)

	require.Len(t, hits, 1)
	assert.InDelta(t, 0.85*0.5+0.15*1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[0].VectorScore, 1e-9)
	assert.InDelta(t, 1.0, hits[0].LexicalScore, 1e-9)
}

func TestRank_TieBreaking(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Identical scores everywhere: newer document wins, then lower chunk id.
	hits := r.Rank("workforce", []Candidate{
		candidate(7, 1, "workforce", 0.4, older),
		candidate(5, 2, "workforce", 0.4, newer),
		candidate(3, 2, "workforce", 0.4, newer),
	}, 10)

	require.Len(t, hits, 3)
	assert.Equal(t, int64(3), hits[0].ChunkID)
	assert.Equal(t, int64(5), hits[1].ChunkID)
	assert.Equal(t, int64(7), hits[2].ChunkID)
}

func TestRank_Deterministic(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	now := time.Now()
	candidates := []Candidate{
		candidate(1, 1, "manufacturing workforce pipeline", 0.62, now),
		candidate(2, 1, "site selection criteria", 0.55, now),
		candidate(3, 2, "workforce grants for manufacturers", 0.62, now),
		candidate(4, 3, "broadband utility corridor", 0.31, now),
	}

	first := r.Rank("manufacturing workforce", candidates, 4)
	for i := 0; i < 5; i++ {
		again := r.Rank("manufacturing workforce", candidates, 4)
		require.Equal(t, first, again, "iteration %d", i)
	}
}

func TestRank_TopKCutoff(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	now := time.Now()
	var candidates []Candidate
	for i := 0; i < 20; i++ {
		candidates = append(candidates, candidate(int64(i), int64(i), "workforce", float64(i)/20.0, now))
	}

	hits := r.Rank("workforce", candidates, 5)
	require.Len(t, hits, 5)
	assert.Equal(t, int64(19), hits[0].ChunkID, "highest vector score ranks first")

	assert.Nil(t, r.Rank("workforce", candidates, 0))
	assert.Nil(t, r.Rank("workforce", nil, 5))
}

func TestNew_WeightValidation(t *testing.T) {
	_, err := New(WithWeights(-0.1, 1.1))
	assert.Error(t, err)

	_, err = New(WithWeights(0.8, 0.1))
	assert.Error(t, err)

	r, err := New(WithWeights(0.5, 0.5))
	require.NoError(t, err)
	hits := r.Rank("workforce", []Candidate{candidate(1, 1, "nothing relevant", 1.0, time.Now())}, 1)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.5, hits[0].Score, 1e-9)
}
