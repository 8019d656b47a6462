package knowbase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civintel/knowbase/ai/mock"
	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/kb"
)

func TestOpen(t *testing.T) {
	t.Run("create new knowledge base", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "kbdata")
		k, err := Open(tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, k)
		defer k.Close()

		assert.NotNil(t, k.Service())
		assert.NotNil(t, k.Store())
		assert.NotNil(t, k.Index())
		assert.True(t, k.Index().Available())
	})

	t.Run("degraded when index dir is unusable", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "vectors"), []byte("x"), 0o644))

		k, err := Open(tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer k.Close()

		assert.False(t, k.Index().Available())

		// Ingestion stores documents with pending embeddings and search
		// serves lexical matches while the index is down.
		ctx := context.Background()
		result, err := k.Service().Ingest(ctx, kb.IngestRequest{
			Title: "Workforce Grant Timeline",
			Text:  "Workforce training grants disburse quarterly to manufacturing employers.",
		})
		require.NoError(t, err)
		assert.Equal(t, kb.StatePartiallyIndexed, result.State)

		response, err := k.Service().Search(ctx, kb.SearchRequest{Query: "workforce training grants"})
		require.NoError(t, err)
		assert.True(t, response.Degraded)
		require.NotEmpty(t, response.Hits)
		assert.Equal(t, result.DocID, response.Hits[0].DocID)
	})
}

func TestKnowledgeBase_Close(t *testing.T) {
	k, err := Open("", WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, k.Close())
}

func TestKnowledgeBase_RoundTrip(t *testing.T) {
	k, err := Open("", WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer k.Close()

	ctx := context.Background()
	result, err := k.Service().Ingest(ctx, kb.IngestRequest{
		Title:        "Workforce Training Incentive Summary",
		Text:         "Workforce training incentives reimburse manufacturing employers for certified instruction costs.",
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	response, err := k.Service().Search(ctx, kb.SearchRequest{Query: "workforce training incentives"})
	require.NoError(t, err)
	assert.False(t, response.OutOfScope)
	require.NotEmpty(t, response.Hits)
	assert.Equal(t, result.DocID, response.Hits[0].DocID)
}

func TestKnowledgeBase_NewAgent(t *testing.T) {
	k, err := Open("", WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer k.Close()

	root := t.TempDir()
	a, err := k.NewAgent(root)
	require.NoError(t, err)
	require.NotNil(t, a)

	_, err = a.ReadByPath(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, core.ErrPathAccessDenied)
}
