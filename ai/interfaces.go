package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces a short title and description for document text.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize analyzes document text and returns display metadata for it.
	// Callers must tolerate failure: ingestion falls back to a
	// filename-derived title when summarization errors out.
	Summarize(ctx context.Context, text string) (Summary, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Summarizer instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Summarizer returns the document summarization service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Available reports whether the embedding backend is configured.
	// Callers use this for health surfaces only; embedding calls can still
	// fail at runtime and must be handled per call.
	Available() bool

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
