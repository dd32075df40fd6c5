// Package sqlite provides the default, single-file VectorStore backend.
// Embeddings are stored as little-endian float64 BLOBs and ranked with
// brute-force cosine similarity in Go. For the dataset sizes a personal
// training log reaches (thousands of activities) that is well under a
// millisecond per query; larger corpora should use the postgres backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/paceline/internal/storage"
)

// Schema is the embedded DDL applied at open time. All statements are
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	document   TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id),
	FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
);
`

// VectorStore implements storage.VectorStore using SQLite.
type VectorStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed vector store at the
// given DSN.
func Open(dsn string) (*VectorStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under the ingest worker pool;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &VectorStore{db: db}, nil
}

// EnsureCollection creates the collection or verifies that the existing one
// was built with the same embedding model and dimension.
func (s *VectorStore) EnsureCollection(ctx context.Context, name string, dimension int, model string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", storage.ErrInvalidInput)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	var haveDim int
	var haveModel string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, model FROM collections WHERE name = ?`, name).Scan(&haveDim, &haveModel)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (name, dimension, model) VALUES (?, ?, ?)`,
			name, dimension, model)
		if err != nil {
			return fmt.Errorf("sqlite: failed to create collection %q: %w", name, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("sqlite: failed to look up collection %q: %w", name, err)
	}

	if haveDim != dimension || haveModel != model {
		return fmt.Errorf("%w: collection %q holds %s/%d-dim vectors, got %s/%d",
			storage.ErrModelMismatch, name, haveModel, haveDim, model, dimension)
	}
	return nil
}

// Upsert writes entries idempotently by id inside a single transaction, so a
// re-submitted id replaces its vector, document and metadata atomically.
func (s *VectorStore) Upsert(ctx context.Context, collection string, entries []storage.Entry) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is required", storage.ErrInvalidInput)
	}
	if len(entries) == 0 {
		return nil
	}

	if err := s.collectionExists(ctx, collection); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertSQL = `
		INSERT INTO entries (collection, id, embedding, dimension, document, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			embedding  = excluded.embedding,
			dimension  = excluded.dimension,
			document   = excluded.document,
			metadata   = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry id is required", storage.ErrInvalidInput)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %q has an empty vector", storage.ErrInvalidInput, e.ID)
		}

		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal metadata for %q: %w", e.ID, err)
		}

		if _, err := stmt.ExecContext(ctx, collection, e.ID,
			storage.SerializeVector(e.Vector), len(e.Vector), e.Document, meta); err != nil {
			return fmt.Errorf("sqlite: failed to upsert %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit upsert: %w", err)
	}
	return nil
}

// Query loads every embedding in the collection, ranks by cosine similarity
// and returns the topK best matches.
func (s *VectorStore) Query(ctx context.Context, collection string, vector []float64, topK int) ([]storage.Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", storage.ErrInvalidInput)
	}
	if err := s.collectionExists(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, dimension, document, metadata
		FROM entries
		WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []storage.Result
	for rows.Next() {
		var (
			id, document string
			blob, meta   []byte
			dim          int
		)
		if err := rows.Scan(&id, &blob, &dim, &document, &meta); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan entry: %w", err)
		}

		vec, err := storage.DeserializeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("sqlite: entry %q: %w", id, err)
		}

		var metadata map[string]string
		if err := json.Unmarshal(meta, &metadata); err != nil {
			return nil, fmt.Errorf("sqlite: entry %q metadata: %w", id, err)
		}

		results = append(results, storage.Result{
			Entry: storage.Entry{ID: id, Vector: vec, Document: document, Metadata: metadata},
			Score: storage.CosineSimilarity(vector, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating entries: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteCollection removes the collection and, via the cascading foreign
// key, every entry in it. Missing collections are a no-op.
func (s *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("sqlite: failed to delete collection %q: %w", name, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// collectionExists maps a missing collection onto storage.ErrCollectionNotFound.
func (s *VectorStore) collectionExists(ctx context.Context, name string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %q (run ingest first)", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("sqlite: failed to look up collection %q: %w", name, err)
	}
	return nil
}

// Compile-time assertion.
var _ storage.VectorStore = (*VectorStore)(nil)
