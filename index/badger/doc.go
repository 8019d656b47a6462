// Package badger implements the index.VectorIndex interface on BadgerDB.
//
// Each chunk's entry carries its unit-normalized embedding plus the document
// metadata needed for hard filtering, serialized in the MUS binary format.
// Search is a full prefix scan with an in-memory top-k sort, which is
// appropriate for corpora in the tens of thousands of chunks that this
// knowledge base targets.
package badger
