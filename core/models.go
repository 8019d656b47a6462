package core

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// EmbeddingStatus tracks whether a chunk's vector made it into the index.
type EmbeddingStatus int

const (
	// EmbeddingPending means the chunk has not been embedded yet.
	EmbeddingPending EmbeddingStatus = iota
	// EmbeddingIndexed means the chunk's vector is stored in the index.
	EmbeddingIndexed
	// EmbeddingFailed means embedding was attempted and failed after retries.
	EmbeddingFailed
)

// String returns a human-readable status name.
func (s EmbeddingStatus) String() string {
	switch s {
	case EmbeddingPending:
		return "pending"
	case EmbeddingIndexed:
		return "indexed"
	case EmbeddingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HashContent computes the deduplication fingerprint of document text using
// BLAKE2b-256. Identical content always produces an identical hash.
func HashContent(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalPath returns the cleaned absolute form of path, following
// symlinks when the target exists. Stored document paths and path lookups
// both go through this so they always agree on one form.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if resolved, symErr := filepath.EvalSymlinks(abs); symErr == nil {
		abs = resolved
	}
	return abs, nil
}

// Document is a single ingested source in the knowledge base.
// Documents are created on successful upload and never mutated except for
// metadata edits; removal cascades to chunks and vector entries.
type Document struct {
	ID           int64
	Title        string
	Jurisdiction string
	Industry     string
	DocType      string
	SourceURL    string
	FilePath     string
	ContentHash  string // BLAKE2b-256 of the normalized extracted text
	FileSize     int64
	Description  string
	CreatedAt    time.Time
}

// Chunk is a bounded contiguous segment of a document's text, the unit of
// indexing and retrieval. A chunk is searchable lexically regardless of
// embedding status, and by vector similarity only when indexed.
type Chunk struct {
	ID              int64
	DocID           int64
	Ordinal         int // 0-based reading order within the document
	Text            string
	TokenCount      int
	EmbeddingStatus EmbeddingStatus
	CreatedAt       time.Time
}

// Filter restricts search to documents matching the given metadata values.
// Empty fields match everything; non-empty fields are hard include/exclude,
// never a soft boost.
type Filter struct {
	Jurisdiction string
	Industry     string
	DocType      string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Jurisdiction == "" && f.Industry == "" && f.DocType == ""
}

// Matches reports whether the given document metadata passes the filter.
// Comparison is case-insensitive on each populated field.
func (f Filter) Matches(jurisdiction, industry, docType string) bool {
	if f.Jurisdiction != "" && !strings.EqualFold(f.Jurisdiction, jurisdiction) {
		return false
	}
	if f.Industry != "" && !strings.EqualFold(f.Industry, industry) {
		return false
	}
	if f.DocType != "" && !strings.EqualFold(f.DocType, docType) {
		return false
	}
	return true
}

// SearchHit is a transient ranked result. It is never persisted.
type SearchHit struct {
	DocID        int64
	ChunkID      int64
	Text         string
	Score        float64 // hybrid score in [0,1]
	VectorScore  float64 // cosine similarity contribution in [0,1]
	LexicalScore float64 // token-overlap contribution in [0,1]

	// Denormalized document metadata for citation display.
	Title        string
	Jurisdiction string
	Industry     string
	DocType      string
	SourceURL    string
	FilePath     string
	CreatedAt    time.Time
}
