package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/storage"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	vec := []float64{1.5, -2.25, 0, 1e-12}

	buf := storage.SerializeVector(vec)
	require.Len(t, buf, len(vec)*8)

	got, err := storage.DeserializeVector(buf, len(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestDeserializeVector_RejectsBadInput(t *testing.T) {
	_, err := storage.DeserializeVector(make([]byte, 16), 3)
	assert.Error(t, err)

	_, err = storage.DeserializeVector(nil, 0)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, storage.CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, storage.CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, storage.CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Degenerate inputs score zero rather than NaN.
	assert.Equal(t, 0.0, storage.CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, storage.CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, storage.CosineSimilarity(nil, nil))
}
