// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Summarizer,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit-norm vectors from a text hash
//   - MockSummarizer: derives a title and description from the text itself
//   - MockProvider: aggregates mock embedder and summarizer
//
// Custom behavior is injected via the exported function fields, and call
// counts are available for assertions.
package mock
