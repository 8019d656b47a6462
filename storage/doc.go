// Package storage defines the persistence abstractions for the knowledge base.
//
// Two concerns live behind interfaces here: the MetadataStore, a transactional
// relational store that owns documents and chunks, and the vector index kept
// in the index package. Implementations must be thread-safe and accept a
// context on every operation.
//
// The production MetadataStore is SQLite-backed and lives in the sqlite
// subpackage.
package storage
