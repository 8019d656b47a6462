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

package kb

import (
	"time"

	"github.com/civintel/knowbase/core"
)

// IngestState describes how far an ingestion made it through indexing.
type IngestState string

const (
	// StateComplete means every chunk of the document was embedded and indexed.
	StateComplete IngestState = "complete"

	// StatePartiallyIndexed means the document and chunks are stored but some
	// or all embeddings are pending or failed. A backfill sweep repairs this.
	StatePartiallyIndexed IngestState = "partially-indexed"
)

// IngestRequest describes one document to ingest. Title is optional; when
// empty a title is derived from the summarizer or the file path.
type IngestRequest struct {
	Title        string
	Text         string
	Jurisdiction string
	Industry     string
	DocType      string
	SourceURL    string
	FilePath     string
}

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	DocID int64

	// Duplicate is true when a document with identical content already
	// existed; no new rows were written and DocID refers to it.
	Duplicate bool

	State             IngestState
	ChunkCount        int
	IndexedChunks     int
	EmbeddingCoverage float64

	// SecurityFindings counts medium-risk matches that were redacted from
	// the stored text.
	SecurityFindings int

	// Quality is the advisory assessment of the stored content. It never
	// blocks ingestion and is nil for duplicates, which were assessed when
	// first stored.
	Quality *QualityReport
}

// SearchRequest describes one retrieval query.
type SearchRequest struct {
	Query  string
	Limit  int
	Filter core.Filter
}

// SearchResponse carries ranked hits plus the scope and degradation signals
// callers must surface rather than hide.
type SearchResponse struct {
	Hits []core.SearchHit

	// OutOfScope is true when the query matched no domain vocabulary, in
	// which case no retrieval happened, or when every ranked hit fell under
	// the relevance floor.
	OutOfScope bool

	// Blocked is true when the query tripped a high-risk security rule.
	// Hits is empty and no retrieval was attempted.
	Blocked bool

	// Degraded is true when vector search was unavailable and results come
	// from lexical matching only.
	Degraded bool
}

// ServiceStatus reports the availability of the external collaborators.
type ServiceStatus struct {
	VectorIndexAvailable bool
	VectorEntries        int64
	EmbeddingsAvailable  bool
}

// Stats is a corpus snapshot with collaborator availability.
type Stats struct {
	Documents         int64
	Chunks            int64
	IndexedChunks     int64
	EmbeddingCoverage float64
	Services          ServiceStatus
	GeneratedAt       time.Time
}
