package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/storage"
	"github.com/scrypster/paceline/internal/storage/sqlite"
)

func openTestStore(t *testing.T) *sqlite.VectorStore {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnsureCollection_CreatesAndVerifies(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "model-a"))

	// Repeat with the same model and dimension is a no-op.
	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "model-a"))

	// A different model or dimension is rejected.
	err := store.EnsureCollection(ctx, "activities", 3, "model-b")
	assert.ErrorIs(t, err, storage.ErrModelMismatch)

	err = store.EnsureCollection(ctx, "activities", 4, "model-a")
	assert.ErrorIs(t, err, storage.ErrModelMismatch)
}

func TestEnsureCollection_RejectsInvalidArguments(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.EnsureCollection(ctx, "", 3, "m"), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.EnsureCollection(ctx, "c", 0, "m"), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.EnsureCollection(ctx, "c", 3, ""), storage.ErrInvalidInput)
}

func TestUpsert_IsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "m"))

	entry := storage.Entry{
		ID:       "a1",
		Vector:   []float64{1, 0, 0},
		Document: "morning run",
		Metadata: map[string]string{"type": "run"},
	}
	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{entry}))
	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{entry}))

	results, err := store.Query(ctx, "activities", []float64{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "re-submitting the same id must not duplicate")
	assert.Equal(t, "morning run", results[0].Document)
	assert.Equal(t, "run", results[0].Metadata["type"])
}

func TestUpsert_ReplacesInPlace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "m"))

	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{
		{ID: "a1", Vector: []float64{1, 0, 0}, Document: "old", Metadata: map[string]string{}},
	}))
	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{
		{ID: "a1", Vector: []float64{0, 1, 0}, Document: "new", Metadata: map[string]string{"k": "v"}},
	}))

	results, err := store.Query(ctx, "activities", []float64{0, 1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Document)
	assert.Equal(t, []float64{0, 1, 0}, results[0].Vector)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestUpsert_RejectsBadEntries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "m"))

	err := store.Upsert(ctx, "activities", []storage.Entry{{ID: "", Vector: []float64{1}}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Upsert(ctx, "activities", []storage.Entry{{ID: "a1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpsert_MissingCollection(t *testing.T) {
	store := openTestStore(t)

	err := store.Upsert(context.Background(), "nope", []storage.Entry{
		{ID: "a1", Vector: []float64{1, 0}},
	})
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "m"))
	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{
		{ID: "far", Vector: []float64{0, 1, 0}, Document: "bike"},
		{ID: "near", Vector: []float64{0.9, 0.1, 0}, Document: "run"},
		{ID: "exact", Vector: []float64{1, 0, 0}, Document: "long run"},
	}))

	results, err := store.Query(ctx, "activities", []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2, "topK must cap the result set")
	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "near", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQuery_ValidatesInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 3, "m"))

	_, err := store.Query(ctx, "activities", []float64{1, 0, 0}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Query(ctx, "activities", nil, 5)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestQuery_MissingCollection(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Query(context.Background(), "nope", []float64{1, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestDeleteCollection_RemovesEntries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "activities", 2, "m"))
	require.NoError(t, store.Upsert(ctx, "activities", []storage.Entry{
		{ID: "a1", Vector: []float64{1, 0}},
	}))

	require.NoError(t, store.DeleteCollection(ctx, "activities"))

	_, err := store.Query(ctx, "activities", []float64{1, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	// A fresh collection with a different model is allowed after the reset.
	require.NoError(t, store.EnsureCollection(ctx, "activities", 4, "other"))
}

func TestDeleteCollection_MissingIsNoOp(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.DeleteCollection(context.Background(), "missing"))
}
