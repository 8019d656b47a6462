package mock

import (
	"context"
	"strings"

	"github.com/civintel/knowbase/ai"
)

// MockSummarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, uses default deterministic behavior.
	SummarizeFunc func(ctx context.Context, text string) (ai.Summary, error)

	callCount int
}

// NewMockSummarizer creates a mock summarizer with default deterministic behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns a title built from the text's first words and a
// description from its first sentence-sized slice.
func (m *MockSummarizer) Summarize(ctx context.Context, text string) (ai.Summary, error) {
	m.callCount++

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}

	words := strings.Fields(text)
	titleWords := words
	if len(titleWords) > 6 {
		titleWords = titleWords[:6]
	}
	description := text
	if len(description) > 200 {
		description = description[:200]
	}

	return ai.Summary{
		Title:       strings.Join(titleWords, " "),
		Description: strings.TrimSpace(description),
	}, nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount = 0
	m.SummarizeFunc = nil
}
