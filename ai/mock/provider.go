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

package mock

import "github.com/civintel/knowbase/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock embedder and summarizer instances.
type MockProvider struct {
	embedder    *MockEmbedder
	summarizer  *MockSummarizer
	unavailable bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockSummarizer() to access concrete types for test assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		summarizer: NewMockSummarizer(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, summarizer *MockSummarizer) ai.Provider {
	return &MockProvider{
		embedder:   embedder,
		summarizer: summarizer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Summarizer returns the mock summarizer.
func (p *MockProvider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// Available reports the simulated embedding backend state.
// Providers start available; use SetAvailable to simulate an outage.
func (p *MockProvider) Available() bool {
	return !p.unavailable
}

// SetAvailable toggles the simulated embedding backend state.
func (p *MockProvider) SetAvailable(available bool) {
	p.unavailable = !available
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockSummarizer returns the underlying mock summarizer for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer {
	return p.summarizer
}
