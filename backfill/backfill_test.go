package backfill

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civintel/knowbase/ai/mock"
	"github.com/civintel/knowbase/core"
	badgerindex "github.com/civintel/knowbase/index/badger"
	"github.com/civintel/knowbase/storage/sqlite"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 100,
		MaxRetries:     1,
		RetryDelay:     time.Millisecond,
	}
}

func seedDocument(t *testing.T, store *sqlite.Store, texts ...string) *core.Document {
	t.Helper()

	doc := &core.Document{
		Title:        "Regional Workforce Incentive Overview",
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
		ContentHash:  core.HashContent("seed " + texts[0]),
	}
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Ordinal:         i,
			Text:            text,
			TokenCount:      10,
			EmbeddingStatus: core.EmbeddingPending,
		}
	}
	require.NoError(t, store.AddDocument(context.Background(), doc, chunks))
	return doc
}

func TestSweepIndexesPendingChunks(t *testing.T) {
	store, err := sqlite.NewStore("")
	require.NoError(t, err)
	defer store.Close()

	idx, err := badgerindex.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	seedDocument(t, store,
		"tax abatement program for manufacturing sites",
		"workforce training grants for new employers",
		"infrastructure improvements near the industrial park")

	embedder := mock.NewMockEmbedder()
	sweeper := NewSweeper(store, embedder, idx, testConfig(), io.Discard)

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 0, report.Failed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.IndexedChunks)
	assert.Equal(t, 1.0, stats.EmbeddingCoverage)

	// Indexed vectors should be findable with matching metadata filters.
	query := mock.DeterministicVector("workforce training grants for new employers", 384)
	matches, err := idx.Search(context.Background(), query, 1, core.Filter{Industry: "manufacturing"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestSweepMarksChunksFailedWhenEmbedderIsDown(t *testing.T) {
	store, err := sqlite.NewStore("")
	require.NoError(t, err)
	defer store.Close()

	idx, err := badgerindex.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	seedDocument(t, store,
		"enterprise zone designation criteria",
		"site readiness certification process",
		"brownfield remediation funding sources")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}

	sweeper := NewSweeper(store, embedder, idx, testConfig(), io.Discard)

	report, err := sweeper.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, report.Failed)

	failed, err := store.GetChunksByStatus(context.Background(), core.EmbeddingFailed, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

func TestSweepRecoversFailedChunks(t *testing.T) {
	store, err := sqlite.NewStore("")
	require.NoError(t, err)
	defer store.Close()

	idx, err := badgerindex.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	seedDocument(t, store,
		"small business revolving loan fund terms",
		"downtown revitalization grant eligibility")

	pending, err := store.GetChunksByStatus(context.Background(), core.EmbeddingPending, 10)
	require.NoError(t, err)
	for _, chunk := range pending {
		require.NoError(t, store.SetChunkStatus(context.Background(), chunk.ID, core.EmbeddingFailed))
	}

	embedder := mock.NewMockEmbedder()
	sweeper := NewSweeper(store, embedder, idx, testConfig(), io.Discard)

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 0, report.Failed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.EmbeddingCoverage)
}

func TestSweepEmptyBacklog(t *testing.T) {
	store, err := sqlite.NewStore("")
	require.NoError(t, err)
	defer store.Close()

	idx, err := badgerindex.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	embedder := mock.NewMockEmbedder()
	var out bytes.Buffer
	sweeper := NewSweeper(store, embedder, idx, testConfig(), &out)

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 0, embedder.CallCount())
	assert.Contains(t, out.String(), "No chunks awaiting embedding")
}

func TestProgressCapsAtTotal(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgress(&out, 10, 5)
	tracker.Start()

	tracker.Add(7)
	tracker.Add(7)
	tracker.Finish()

	assert.Contains(t, out.String(), "10/10 (100.0%)")
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}
