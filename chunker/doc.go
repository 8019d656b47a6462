// Package chunker splits document text into overlapping, token-budgeted
// segments for indexing.
//
// Segmentation works on word boundaries with an approximate token count
// (about four tokens per three words of English prose). Cuts snap to a
// nearby sentence boundary when one exists, adjacent segments share a
// configurable overlap, and a short trailing fragment merges into the
// previous segment instead of being emitted on its own.
package chunker
