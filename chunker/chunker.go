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

package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/civintel/knowbase/core"
)

const (
	// DefaultChunkTokens is the target chunk size in approximate tokens.
	DefaultChunkTokens = 800
	// DefaultOverlapTokens is the overlap carried between adjacent chunks.
	DefaultOverlapTokens = 80
)

// Segment is one bounded slice of a document's text in reading order.
type Segment struct {
	Ordinal    int
	Text       string
	TokenCount int
}

// Chunker splits document text into overlapping segments sized by an
// approximate token budget. Cuts prefer sentence boundaries when one falls
// near the budget; otherwise they land on a word boundary.
type Chunker struct {
	chunkTokens   int
	overlapTokens int
	logger        *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the target chunk size in tokens.
// Default is DefaultChunkTokens.
func WithChunkSize(tokens int) Option {
	return func(c *Chunker) error {
		if tokens < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", tokens)
		}
		c.chunkTokens = tokens
		return nil
	}
}

// WithOverlap sets the token overlap between adjacent chunks.
// Default is DefaultOverlapTokens. Overlap must be smaller than the chunk size.
func WithOverlap(tokens int) Option {
	return func(c *Chunker) error {
		if tokens < 0 {
			return fmt.Errorf("overlap must be non-negative, got %d", tokens)
		}
		c.overlapTokens = tokens
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkTokens:   DefaultChunkTokens,
		overlapTokens: DefaultOverlapTokens,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlapTokens >= c.chunkTokens {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", c.overlapTokens, c.chunkTokens)
	}
	return c, nil
}

// EstimateTokens approximates the token count of text. English prose averages
// roughly three words per four tokens, so the estimate is ceil(words * 4 / 3).
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

// Split divides text into segments. Whitespace runs are normalized to single
// spaces inside each segment. Every word of the input appears in at least one
// segment, adjacent segments share the configured overlap, and the final
// segment absorbs any short tail rather than emitting a fragment.
//
// Returns core.ErrEmptyContent when text is empty or whitespace-only.
func (c *Chunker) Split(text string) ([]Segment, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, core.ErrEmptyContent
	}

	chunkWords := tokensToWords(c.chunkTokens)
	overlapWords := tokensToWords(c.overlapTokens)
	if chunkWords < 1 {
		chunkWords = 1
	}
	if overlapWords >= chunkWords {
		overlapWords = chunkWords - 1
	}
	// A trailing fragment shorter than this merges into the previous chunk.
	minTail := chunkWords / 4

	var segments []Segment
	start := 0
	for {
		end := start + chunkWords
		last := false
		if end >= len(words) {
			end = len(words)
			last = true
		} else if len(words)-end < minTail {
			end = len(words)
			last = true
		} else {
			end = snapToSentence(words, start, end)
		}

		segText := strings.Join(words[start:end], " ")
		segments = append(segments, Segment{
			Ordinal:    len(segments),
			Text:       segText,
			TokenCount: wordsToTokens(end - start),
		})
		if last {
			break
		}
		next := end - overlapWords
		if next <= start {
			next = start + 1
		}
		start = next
	}

	c.logger.Debug("split text into segments",
		"words", len(words),
		"segments", len(segments),
		"chunk_words", chunkWords,
		"overlap_words", overlapWords)
	return segments, nil
}

// snapToSentence moves a cut point backward to the word following the nearest
// sentence-ending punctuation, searching at most a tenth of the chunk. The
// original cut stands when no boundary is close enough.
func snapToSentence(words []string, start, end int) int {
	window := (end - start) / 10
	for j := end; j > end-window && j > start+1; j-- {
		w := words[j-1]
		if strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?") {
			return j
		}
	}
	return end
}

// tokensToWords converts an approximate token budget to words.
func tokensToWords(tokens int) int {
	return tokens * 3 / 4
}

// wordsToTokens is the inverse estimate of tokensToWords.
func wordsToTokens(words int) int {
	return (words*4 + 2) / 3
}
