// Package sqlite implements the storage.MetadataStore interface on SQLite.
//
// The store runs in WAL mode with foreign keys enabled, migrates its schema
// forward from embedded SQL files, and keeps document plus chunk inserts
// inside a single transaction so concurrent uploads never interleave ordinals
// or duplicate a content hash.
package sqlite
