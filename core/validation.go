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

package core

import (
	"fmt"
	"strings"
)

// ValidateDocumentInput validates document fields supplied at ingest time.
//
// Validation rules:
//   - Title must not be empty or whitespace-only
//   - Text must not be empty or whitespace-only
//
// NOT validated (populated by the pipeline):
//   - ContentHash (computed from the text)
//   - ID (0 is valid, assigned by the metadata store)
//   - Description (filled by summarization, may stay empty)
func ValidateDocumentInput(title, text string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is empty", ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}
	return nil
}

// ValidateQuery validates a search query string.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is empty", ErrValidation)
	}
	return nil
}

// ValidateLimit checks a result limit and returns a usable value, clamping
// non-positive or oversized inputs to the given default and maximum.
func ValidateLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
