package openai

import (
	"context"
	"log/slog"

	"github.com/civintel/knowbase/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder talks to an OpenAI-compatible embeddings endpoint through the
// langchaingo client. It satisfies ai.Embedder.
type Embedder struct {
	client embeddings.Embedder
	logger *slog.Logger
}

// newEmbedder builds the concrete type for Provider, which hands out the
// interface.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services ignore the token but the client
	// requires one.
	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		logger: slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for the configured endpoint and model.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds one text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("embedding text", "length", len(text))

	vectors, err := e.client.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("embedding call failed", "err", err)
		return nil, err
	}

	if len(vectors) == 0 {
		e.logger.Warn("embedding service returned no vector")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts embeds a batch of texts in one round trip. Vectors come back in
// input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding batch", "count", len(texts))

	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding call failed", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}
