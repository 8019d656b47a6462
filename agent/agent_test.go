package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/kb"
	"github.com/civintel/knowbase/storage"
	"github.com/civintel/knowbase/storage/sqlite"
)

type stubRetriever struct {
	response *kb.SearchResponse
	lastReq  kb.SearchRequest
}

func (s *stubRetriever) Search(ctx context.Context, req kb.SearchRequest) (*kb.SearchResponse, error) {
	s.lastReq = req
	return s.response, nil
}

func newTestService(t *testing.T) (*Service, *sqlite.Store, *stubRetriever, string) {
	t.Helper()

	store, err := sqlite.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	retriever := &stubRetriever{response: &kb.SearchResponse{}}
	root := t.TempDir()

	svc, err := New(store, retriever, root)
	require.NoError(t, err)
	return svc, store, retriever, svc.root
}

func seedDocument(t *testing.T, store *sqlite.Store, path string, texts ...string) *core.Document {
	t.Helper()

	doc := &core.Document{
		Title:        "Workforce Training Grant Guidelines",
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
		FilePath:     path,
		ContentHash:  core.HashContent(path + texts[0]),
	}
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Ordinal:         i,
			Text:            text,
			TokenCount:      4,
			EmbeddingStatus: core.EmbeddingIndexed,
		}
	}
	require.NoError(t, store.AddDocument(context.Background(), doc, chunks))
	return doc
}

func TestReadByID(t *testing.T) {
	svc, store, _, root := newTestService(t)

	doc := seedDocument(t, store, filepath.Join(root, "grants.txt"),
		"training grant eligibility criteria",
		"criteria apply to manufacturing employers")

	content, err := svc.ReadByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, content.Doc.ID)
	assert.Equal(t,
		"training grant eligibility criteria apply to manufacturing employers",
		content.Text)

	_, err = svc.ReadByID(context.Background(), 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadByPath(t *testing.T) {
	svc, store, _, root := newTestService(t)

	path := filepath.Join(root, "docs", "incentives.txt")
	doc := seedDocument(t, store, path, "enterprise zone tax abatement schedule")

	content, err := svc.ReadByPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, content.Doc.ID)

	// Relative traversal through the root must also resolve.
	content, err = svc.ReadByPath(context.Background(), filepath.Join(root, "other", "..", "docs", "incentives.txt"))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, content.Doc.ID)
}

func TestReadByPathFindsRelativelyIngestedDocuments(t *testing.T) {
	svc, store, _, root := newTestService(t)
	t.Chdir(root)

	// Ingestion stores the canonical form of whatever path the uploader
	// supplied; a relative lookup from the same directory must resolve to it.
	canonical, err := core.CanonicalPath("reports/training.txt")
	require.NoError(t, err)
	doc := seedDocument(t, store, canonical, "workforce training grant ledger")

	content, err := svc.ReadByPath(context.Background(), "reports/training.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, content.Doc.ID)
}

func TestReadByPathDeniesEscapes(t *testing.T) {
	svc, _, _, root := newTestService(t)

	cases := []string{
		"../../etc/passwd",
		"/etc/passwd",
		filepath.Join(root, "..", "sibling", "file.txt"),
	}
	for _, path := range cases {
		_, err := svc.ReadByPath(context.Background(), path)
		assert.ErrorIs(t, err, core.ErrPathAccessDenied, "path %q", path)
	}
}

func TestSearchAndRead(t *testing.T) {
	svc, store, retriever, root := newTestService(t)

	doc := seedDocument(t, store, filepath.Join(root, "report.txt"),
		"workforce training grant overview",
		"overview of eligible training providers")

	retriever.response = &kb.SearchResponse{
		Hits: []core.SearchHit{
			{DocID: doc.ID, ChunkID: 1, Score: 0.9, Title: doc.Title},
			{DocID: doc.ID, ChunkID: 2, Score: 0.4, Title: doc.Title},
		},
	}

	result, err := svc.SearchAndRead(context.Background(), "workforce training", 5, core.Filter{Industry: "manufacturing"})
	require.NoError(t, err)

	assert.Equal(t, "workforce training", retriever.lastReq.Query)
	assert.Equal(t, "manufacturing", retriever.lastReq.Filter.Industry)

	// Two hits on the same document load its text once.
	require.Len(t, result.Documents, 1)
	assert.Equal(t,
		"workforce training grant overview of eligible training providers",
		result.Documents[0].Text)
}

func TestListDocumentsAndSummary(t *testing.T) {
	svc, store, _, root := newTestService(t)

	doc := seedDocument(t, store, filepath.Join(root, "summary.txt"),
		"infrastructure bond program terms")

	docs, err := svc.ListDocuments(context.Background(), core.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	summary, err := svc.Summary(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ChunkCount)
	assert.Equal(t, 4, summary.TokenCount)
	assert.Equal(t, doc.Title, summary.Doc.Title)
}

func TestMergeChunkTexts(t *testing.T) {
	chunks := []*core.Chunk{
		{Text: "a b c d"},
		{Text: "c d e f"},
		{Text: "e f g"},
	}
	assert.Equal(t, "a b c d e f g", mergeChunkTexts(chunks))
	assert.Equal(t, "", mergeChunkTexts(nil))
}
