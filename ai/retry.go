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

package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts indicates a retry call with a non-positive attempt count.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

// RetryEmbedder decorates an Embedder with bounded exponential backoff on
// every call. The embedding service is treated as unreliable; transient
// failures are absorbed here so callers only see errors that persisted
// through all attempts.
type RetryEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryEmbedder wraps an embedder with retry behavior.
// Non-positive maxAttempts or baseDelay fall back to 3 attempts and 1s.
func NewRetryEmbedder(inner Embedder, maxAttempts int, baseDelay time.Duration) *RetryEmbedder {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RetryEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// EmbedText generates an embedding for a single text, retrying on failure.
func (r *RetryEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var embErr error
		vector, embErr = r.inner.EmbedText(ctx, text)
		return embErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates embeddings for a batch of texts, retrying on failure.
func (r *RetryEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embErr error
		vectors, embErr = r.inner.EmbedTexts(ctx, texts)
		return embErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// RetryWithBackoff runs operation up to maxAttempts times, doubling the wait
// between tries starting from baseDelay. It returns nil on the first success,
// ctx.Err() when the context ends mid-wait, and otherwise the error from the
// final attempt.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		slog.Debug("operation failed, backing off",
			"attempt", attempt, "maxAttempts", maxAttempts, "delay", delay, "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
