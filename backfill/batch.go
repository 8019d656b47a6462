package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/civintel/knowbase/ai"
	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/index"
	"github.com/civintel/knowbase/storage"
)

// BatchProcessor handles embedding generation and index writes for batches
// of chunks.
type BatchProcessor struct {
	store          storage.MetadataStore
	embedder       ai.Embedder
	idx            index.VectorIndex
	maxRetries     int
	retryBaseDelay time.Duration

	// docCache avoids refetching document metadata for every chunk of the
	// same document within a sweep.
	docCache map[int64]*core.Document
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store storage.MetadataStore, embedder ai.Embedder, idx index.VectorIndex, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		embedder:       embedder,
		idx:            idx,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		docCache:       make(map[int64]*core.Document),
	}
}

// Process embeds a batch of chunks and upserts the vectors into the index.
// Chunks are marked indexed or failed individually. A batch-wide embedding
// failure marks every chunk failed before returning the error.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) (indexed, failed int, err error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err = ai.RetryWithBackoff(ctx, func() error {
		var embErr error
		embeddings, embErr = bp.embedder.EmbedTexts(ctx, texts)
		return embErr
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		for _, chunk := range chunks {
			if chunk.EmbeddingStatus == core.EmbeddingFailed {
				continue
			}
			if markErr := bp.store.SetChunkStatus(ctx, chunk.ID, core.EmbeddingFailed); markErr != nil {
				return 0, len(chunks), fmt.Errorf("failed to mark chunk %d: %w", chunk.ID, markErr)
			}
		}
		return 0, len(chunks), fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return 0, 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i, chunk := range chunks {
		doc, docErr := bp.document(ctx, chunk.DocID)
		if docErr != nil {
			return indexed, failed, docErr
		}

		entry := &index.Entry{
			ChunkID:      uint64(chunk.ID),
			DocID:        uint64(chunk.DocID),
			Jurisdiction: doc.Jurisdiction,
			Industry:     doc.Industry,
			DocType:      doc.DocType,
			Vector:       embeddings[i],
		}

		status := core.EmbeddingIndexed
		if upsertErr := bp.idx.Upsert(ctx, entry); upsertErr != nil {
			status = core.EmbeddingFailed
		}

		if chunk.EmbeddingStatus != status {
			if markErr := bp.store.SetChunkStatus(ctx, chunk.ID, status); markErr != nil {
				return indexed, failed, fmt.Errorf("failed to mark chunk %d: %w", chunk.ID, markErr)
			}
		}

		if status == core.EmbeddingIndexed {
			indexed++
		} else {
			failed++
		}
	}

	return indexed, failed, nil
}

func (bp *BatchProcessor) document(ctx context.Context, docID int64) (*core.Document, error) {
	if doc, ok := bp.docCache[docID]; ok {
		return doc, nil
	}
	doc, err := bp.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", docID, err)
	}
	bp.docCache[docID] = doc
	return doc, nil
}
