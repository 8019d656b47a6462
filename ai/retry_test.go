package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("temporary failure")
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("temporary failure")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func TestRetryEmbedderRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	embedder := NewRetryEmbedder(inner, 3, time.Millisecond)

	vector, err := embedder.EmbedText(context.Background(), "industrial park expansion")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("expected 2-dim vector, got %d", len(vector))
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryEmbedderExhaustsAttempts(t *testing.T) {
	inner := &flakyEmbedder{failures: 10}
	embedder := NewRetryEmbedder(inner, 2, time.Millisecond)

	_, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetryEmbedderDefaults(t *testing.T) {
	embedder := NewRetryEmbedder(&flakyEmbedder{}, 0, 0)
	if embedder.maxAttempts != 3 {
		t.Errorf("expected default 3 attempts, got %d", embedder.maxAttempts)
	}
	if embedder.baseDelay != time.Second {
		t.Errorf("expected default 1s base delay, got %v", embedder.baseDelay)
	}
}
