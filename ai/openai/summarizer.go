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

package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/civintel/knowbase/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxSampleChars bounds how much document text is sent to the model.
// Titles and descriptions rarely improve beyond the opening pages.
const maxSampleChars = 4000

// maxDescriptionChars caps the stored description length.
const maxDescriptionChars = 500

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client llms.Model
	logger *slog.Logger
}

// metadata is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.SummarizerHost),
		openai.WithToken("none"),
		openai.WithModel(config.SummarizerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client: client,
		logger: slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize generates a title and description for the given document text.
// The model sees at most the opening maxSampleChars characters.
func (s *Summarizer) Summarize(ctx context.Context, text string) (ai.Summary, error) {
	sample := text
	if len(sample) > maxSampleChars {
		sample = sample[:maxSampleChars]
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(summarySystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(sample),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result metadata
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.3), llms.WithJSONMode())
		if err != nil {
			s.logger.Error("failed to generate summary", "attempt", attempt+1, "err", err)
			return ai.Summary{}, err
		}

		if len(response.Choices) < 1 {
			s.logger.Debug("no choices returned from model")
			return ai.Summary{}, nil
		}

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			s.logger.Warn("error parsing summarizer response",
				"attempt", attempt+1,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.Error("failed to parse summarizer response after retries", "err", lastErr)
		return ai.Summary{}, lastErr
	}

	if len(result.Description) > maxDescriptionChars {
		result.Description = result.Description[:maxDescriptionChars-3] + "..."
	}

	return ai.Summary{
		Title:       strings.TrimSpace(result.Title),
		Description: strings.TrimSpace(result.Description),
	}, nil
}
