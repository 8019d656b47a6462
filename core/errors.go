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

import "errors"

// Domain validation errors
var (
	// ErrEmptyContent indicates input text that is empty or whitespace-only.
	ErrEmptyContent = errors.New("content is empty")

	// ErrValidation indicates malformed input such as a missing title or
	// an out-of-range parameter.
	ErrValidation = errors.New("validation failed")
)

// Pipeline errors
var (
	// ErrSecurityRejection indicates input blocked by a high-risk security
	// finding. The offending raw text is never included in the error.
	ErrSecurityRejection = errors.New("input rejected by security validation")

	// ErrProviderUnavailable indicates the embedding provider could not be
	// reached or returned a non-retryable failure.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrPathAccessDenied indicates a file access attempt that resolves
	// outside the configured knowledge base root.
	ErrPathAccessDenied = errors.New("path access denied")
)
