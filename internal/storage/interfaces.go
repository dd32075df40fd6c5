// Package storage defines the vector store contract the pipeline persists
// summaries into. Backends are small and swappable: SQLite for local
// single-file use, PostgreSQL with pgvector for indexed similarity search.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound indicates the query path was used before any
	// ingestion created the collection. It is deliberately distinct from
	// generic I/O failures so the CLI can tell the user to run ingest first.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidInput indicates the caller passed invalid parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelMismatch indicates an attempt to reuse a collection with a
	// different embedding model or dimension than it was created with.
	// Vectors from two models share no similarity space; the store refuses
	// to mix them rather than silently degrade retrieval.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// Entry is the persisted tuple for one summary document: stable id,
// embedding vector, the summary text itself and its flat metadata.
type Entry struct {
	ID       string
	Vector   []float64
	Document string
	Metadata map[string]string
}

// Result is one retrieval hit. Score is cosine similarity in [-1, 1];
// higher means more similar, and ordering is consistent across queries
// against the same collection.
type Result struct {
	Entry
	Score float64
}

// VectorStore persists (id, vector, document, metadata) tuples in named
// collections and answers nearest-neighbor queries.
type VectorStore interface {
	// EnsureCollection creates the collection if needed and records the
	// embedding model and dimension it holds. Reopening an existing
	// collection with a different model or dimension returns
	// ErrModelMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int, model string) error

	// Upsert writes entries idempotently by id: re-submitting an id replaces
	// its vector, document and metadata atomically. No duplicate ids ever
	// coexist in a collection.
	Upsert(ctx context.Context, collection string, entries []Entry) error

	// Query returns up to topK entries ranked by descending similarity to
	// the given vector. Returns ErrCollectionNotFound when the collection
	// has never been created.
	Query(ctx context.Context, collection string, vector []float64, topK int) ([]Result, error)

	// DeleteCollection removes the collection and all its entries. This is
	// the supported way to forget ingested knowledge. Deleting a collection
	// that does not exist is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// Close releases the underlying database handle.
	Close() error
}
