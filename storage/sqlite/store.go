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

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/storage"
	"github.com/civintel/knowbase/storage/sqlite/migrations"
)

// Store is the SQLite-backed metadata store. It owns documents and chunks
// and serializes concurrent writers through normal transaction isolation.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ storage.MetadataStore = (*Store)(nil)

// NewStore creates a SQLite store under the given data directory.
// The database file is created on first use; the schema migrates forward
// automatically. An empty dataDir means an in-memory database, useful for
// tests.
func NewStore(dataDir string) (*Store, error) {
	var dsn, dbPath string
	if dataDir == "" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
		dbPath = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "metadata.db")
		// WAL mode for better concurrency
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dataDir == "" {
		// An in-memory database vanishes when its sole connection closes.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:     db,
		path:   dbPath,
		logger: slog.Default().With("component", "sqlite-store"),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// AddDocument inserts the document and its chunks in one transaction.
func (s *Store) AddDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", storage.ErrInvalidQuery)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE content_hash = ?", doc.ContentHash).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: content hash %s", storage.ErrDuplicateKey, doc.ContentHash)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking content hash: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (title, jurisdiction, industry, doc_type, source_url,
			file_path, content_hash, file_size, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Title, doc.Jurisdiction, doc.Industry, doc.DocType, doc.SourceURL,
		doc.FilePath, doc.ContentHash, doc.FileSize, doc.Description, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}

	for _, chunk := range chunks {
		chunk.DocID = doc.ID
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = doc.CreatedAt
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (doc_id, ordinal, text, token_count, embedding_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, chunk.DocID, chunk.Ordinal, chunk.Text, chunk.TokenCount, int(chunk.EmbeddingStatus), chunk.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", chunk.Ordinal, err)
		}
		chunk.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrTransactionFailed, err)
	}

	s.logger.Debug("stored document", "doc_id", doc.ID, "chunks", len(chunks))
	return nil
}

const documentColumns = `id, title, jurisdiction, industry, doc_type, source_url,
	file_path, content_hash, file_size, description, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*core.Document, error) {
	var doc core.Document
	var createdAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.Title, &doc.Jurisdiction, &doc.Industry, &doc.DocType,
		&doc.SourceURL, &doc.FilePath, &doc.ContentHash, &doc.FileSize, &doc.Description, &createdAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	return &doc, nil
}

func (s *Store) getDocumentWhere(ctx context.Context, clause string, arg any) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE "+clause, arg)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*core.Document, error) {
	return s.getDocumentWhere(ctx, "id = ?", id)
}

// GetDocumentByHash retrieves a document by content hash.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*core.Document, error) {
	return s.getDocumentWhere(ctx, "content_hash = ?", hash)
}

// GetDocumentByPath retrieves a document by stored file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*core.Document, error) {
	return s.getDocumentWhere(ctx, "file_path = ?", path)
}

// ListDocuments returns documents matching the filter, newest first.
func (s *Store) ListDocuments(ctx context.Context, filter core.Filter, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		limit = 100
	}

	where, args := filterClauses("", filter)
	query := "SELECT " + documentColumns + " FROM documents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; chunks cascade via the foreign key.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const chunkColumns = `id, doc_id, ordinal, text, token_count, embedding_status, created_at`

func scanChunk(row interface{ Scan(...any) error }) (*core.Chunk, error) {
	var chunk core.Chunk
	var status int
	var createdAt sql.NullTime
	err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.Ordinal, &chunk.Text,
		&chunk.TokenCount, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	chunk.EmbeddingStatus = core.EmbeddingStatus(status)
	if createdAt.Valid {
		chunk.CreatedAt = createdAt.Time
	}
	return &chunk, nil
}

// GetChunk retrieves a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id int64) (*core.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return chunk, nil
}

// GetChunks returns all chunks of a document in ordinal order.
func (s *Store) GetChunks(ctx context.Context, docID int64) ([]*core.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE doc_id = ? ORDER BY ordinal", docID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// GetChunksByIDs returns chunks joined with their documents. Missing IDs are
// skipped.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []int64) ([]*storage.ChunkWithDoc, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.doc_id, c.ordinal, c.text, c.token_count, c.embedding_status, c.created_at,
			d.id, d.title, d.jurisdiction, d.industry, d.doc_type, d.source_url,
			d.file_path, d.content_hash, d.file_size, d.description, d.created_at
		FROM chunks c JOIN documents d ON d.id = c.doc_id
		WHERE c.id IN (`+placeholders+`)
		ORDER BY c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by ids: %w", err)
	}
	defer rows.Close()

	return scanChunkDocRows(rows)
}

// GetChunksByStatus returns up to limit chunks in the given state, oldest first.
func (s *Store) GetChunksByStatus(ctx context.Context, status core.EmbeddingStatus, limit int) ([]*core.Chunk, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE embedding_status = ? ORDER BY id LIMIT ?",
		int(status), limit)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by status: %w", err)
	}
	defer rows.Close()

	var chunks []*core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SetChunkStatus updates one chunk's embedding state.
func (s *Store) SetChunkStatus(ctx context.Context, chunkID int64, status core.EmbeddingStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chunks SET embedding_status = ? WHERE id = ?", int(status), chunkID)
	if err != nil {
		return fmt.Errorf("updating chunk status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SearchLexical returns chunks containing any of the terms, newest documents
// first within a deterministic order.
func (s *Store) SearchLexical(ctx context.Context, terms []string, filter core.Filter, limit int) ([]*storage.ChunkWithDoc, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var termClauses []string
	var args []any
	for _, term := range terms {
		termClauses = append(termClauses, "instr(lower(c.text), ?) > 0")
		args = append(args, strings.ToLower(term))
	}
	where := []string{"(" + strings.Join(termClauses, " OR ") + ")"}

	filterWhere, filterArgs := filterClauses("d.", filter)
	where = append(where, filterWhere...)
	args = append(args, filterArgs...)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.doc_id, c.ordinal, c.text, c.token_count, c.embedding_status, c.created_at,
			d.id, d.title, d.jurisdiction, d.industry, d.doc_type, d.source_url,
			d.file_path, d.content_hash, d.file_size, d.description, d.created_at
		FROM chunks c JOIN documents d ON d.id = c.doc_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY c.doc_id, c.id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	return scanChunkDocRows(rows)
}

// Stats reports corpus counts and embedding coverage.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	var stats storage.Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM chunks WHERE embedding_status = ?)`,
		int(core.EmbeddingIndexed))
	if err := row.Scan(&stats.Documents, &stats.Chunks, &stats.IndexedChunks); err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	if stats.Chunks > 0 {
		stats.EmbeddingCoverage = float64(stats.IndexedChunks) / float64(stats.Chunks)
	}
	return &stats, nil
}

// filterClauses builds WHERE fragments for a metadata filter. prefix is the
// table alias ("d." or empty) of the documents table.
func filterClauses(prefix string, filter core.Filter) ([]string, []any) {
	var where []string
	var args []any
	if filter.Jurisdiction != "" {
		where = append(where, "lower("+prefix+"jurisdiction) = lower(?)")
		args = append(args, filter.Jurisdiction)
	}
	if filter.Industry != "" {
		where = append(where, "lower("+prefix+"industry) = lower(?)")
		args = append(args, filter.Industry)
	}
	if filter.DocType != "" {
		where = append(where, "lower("+prefix+"doc_type) = lower(?)")
		args = append(args, filter.DocType)
	}
	return where, args
}

func scanChunkDocRows(rows *sql.Rows) ([]*storage.ChunkWithDoc, error) {
	var results []*storage.ChunkWithDoc
	for rows.Next() {
		var cwd storage.ChunkWithDoc
		var status int
		var chunkCreated, docCreated sql.NullTime
		err := rows.Scan(
			&cwd.Chunk.ID, &cwd.Chunk.DocID, &cwd.Chunk.Ordinal, &cwd.Chunk.Text,
			&cwd.Chunk.TokenCount, &status, &chunkCreated,
			&cwd.Doc.ID, &cwd.Doc.Title, &cwd.Doc.Jurisdiction, &cwd.Doc.Industry,
			&cwd.Doc.DocType, &cwd.Doc.SourceURL, &cwd.Doc.FilePath, &cwd.Doc.ContentHash,
			&cwd.Doc.FileSize, &cwd.Doc.Description, &docCreated)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk join: %w", err)
		}
		cwd.Chunk.EmbeddingStatus = core.EmbeddingStatus(status)
		if chunkCreated.Valid {
			cwd.Chunk.CreatedAt = chunkCreated.Time
		}
		if docCreated.Valid {
			cwd.Doc.CreatedAt = docCreated.Time
		}
		results = append(results, &cwd)
	}
	return results, rows.Err()
}
