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

// Package rank combines semantic and lexical relevance into a single hybrid
// score for retrieved chunks.
//
// The hybrid score is a weighted sum of cosine similarity and a stop-word
// filtered token overlap ratio, both clamped to [0,1]. Ordering is fully
// deterministic: descending score, then newer document, then lower chunk id.
package rank
