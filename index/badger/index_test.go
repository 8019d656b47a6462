package badger

import (
	"context"
	"testing"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func entry(chunkID, docID uint64, industry string, vector []float32) *index.Entry {
	return &index.Entry{
		ChunkID:      chunkID,
		DocID:        docID,
		Jurisdiction: "ohio",
		Industry:     industry,
		DocType:      "report",
		Vector:       vector,
	}
}

func TestEntrySerializationRoundTrip(t *testing.T) {
	original := entry(42, 7, "manufacturing", []float32{0.1, -0.5, 0.9})

	decoded, err := UnmarshalEntry(MarshalEntry(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUpsertAndSearch(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, entry(1, 1, "manufacturing", []float32{1, 0, 0})))
	require.NoError(t, ix.Upsert(ctx, entry(2, 1, "manufacturing", []float32{0.9, 0.1, 0})))
	require.NoError(t, ix.Upsert(ctx, entry(3, 2, "logistics", []float32{0, 1, 0})))

	matches, err := ix.Search(ctx, []float32{1, 0, 0}, 10, core.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, int64(1), matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6, "identical direction scores 1")
	assert.Equal(t, int64(2), matches[1].ChunkID)
	assert.Greater(t, matches[1].Similarity, matches[2].Similarity)
}

func TestSearch_MetadataFilter(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, entry(1, 1, "manufacturing", []float32{1, 0, 0})))
	require.NoError(t, ix.Upsert(ctx, entry(2, 2, "logistics", []float32{1, 0, 0})))

	matches, err := ix.Search(ctx, []float32{1, 0, 0}, 10, core.Filter{Industry: "Manufacturing"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].ChunkID)
}

func TestSearch_TopKCutoff(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	for i := uint64(1); i <= 10; i++ {
		v := []float32{1, float32(i) * 0.1, 0}
		require.NoError(t, ix.Upsert(ctx, entry(i, i, "manufacturing", v)))
	}

	matches, err := ix.Search(ctx, []float32{1, 0, 0}, 3, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	// Smallest second component is closest to the query direction.
	assert.Equal(t, int64(1), matches[0].ChunkID)
}

func TestUpsertReplacesExisting(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, entry(1, 1, "manufacturing", []float32{1, 0, 0})))
	require.NoError(t, ix.Upsert(ctx, entry(1, 1, "manufacturing", []float32{0, 1, 0})))

	matches, err := ix.Search(ctx, []float32{0, 1, 0}, 1, core.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestDelete(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, entry(1, 1, "manufacturing", []float32{1, 0, 0})))
	require.NoError(t, ix.Upsert(ctx, entry(2, 1, "manufacturing", []float32{0, 1, 0})))

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, ix.Delete(ctx, 1, 99))

	matches, err := ix.Search(ctx, []float32{1, 0, 0}, 10, core.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].ChunkID)

	count, err = ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAvailable(t *testing.T) {
	ix := newTestIndex(t)
	assert.True(t, ix.Available())

	require.NoError(t, ix.Close())
	assert.False(t, ix.Available())

	err := ix.Upsert(context.Background(), entry(1, 1, "manufacturing", []float32{1}))
	assert.ErrorIs(t, err, index.ErrUnavailable)

	_, err = ix.Search(context.Background(), []float32{1}, 1, core.Filter{})
	assert.ErrorIs(t, err, index.ErrUnavailable)
}

func TestDegraded(t *testing.T) {
	ix := Degraded()
	assert.False(t, ix.Available())

	err := ix.Upsert(context.Background(), entry(1, 1, "manufacturing", []float32{1}))
	assert.ErrorIs(t, err, index.ErrUnavailable)

	_, err = ix.Search(context.Background(), []float32{1}, 5, core.Filter{})
	assert.ErrorIs(t, err, index.ErrUnavailable)

	_, err = ix.Count(context.Background())
	assert.ErrorIs(t, err, index.ErrUnavailable)

	err = ix.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, index.ErrUnavailable)

	assert.NoError(t, ix.Close())
}

func TestNormalizeVector(t *testing.T) {
	normalized := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(normalized[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(normalized[1]), 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)

	assert.Empty(t, NormalizeVector(nil))
}
