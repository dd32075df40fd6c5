package query_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/activity"
	"github.com/scrypster/paceline/internal/config"
	"github.com/scrypster/paceline/internal/ingest"
	"github.com/scrypster/paceline/internal/query"
	"github.com/scrypster/paceline/internal/storage/sqlite"
)

// TestEndToEnd_IngestThenAsk walks the whole pipeline offline: two activities
// go through normalize, summarize, embed and upsert into a real SQLite store,
// then a question retrieves them and a canned generator answers from the
// retrieved context.
func TestEndToEnd_IngestThenAsk(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	embedder := &wordEmbedder{}
	const collection = "activity-summaries"

	rows := []activity.Row{
		{
			"activityId":           "1001",
			"activityType.typeKey": "running",
			"activityName":         "Morning Run",
			"startTimeLocal":       "2024-01-05 08:00:00",
			"duration":             "3000",
			"distance":             "10000",
		},
		{
			"activityId":           "1002",
			"activityType.typeKey": "cycling",
			"activityName":         "Evening Ride",
			"startTimeLocal":       "2024-01-06 18:00:00",
			"duration":             "5400",
			"distance":             "30000",
		},
	}

	p := ingest.New(store, embedder, collection, config.IngestConfig{
		Workers: 2, BatchSize: 16, RatePerSec: 1000,
	})
	report, err := p.Run(ctx, rows, ingest.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Succeeded)
	require.Zero(t, report.Failed)

	retriever := query.NewRetriever(store, embedder, collection)
	results, err := retriever.Retrieve(ctx, "How far did I run in January?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The run must outrank the ride for a running question.
	assert.Equal(t, "1001", results[0].ID)
	assert.Contains(t, results[0].Document, "distance_km: 10")
	assert.Greater(t, results[0].Score, results[1].Score)

	gen := &fakeGenerator{answer: "You ran 10 km on January 5th [1]."}
	composer := query.NewComposer(gen)
	answer, answerCtx, err := composer.Answer(ctx, "How far did I run in January?", results)
	require.NoError(t, err)

	assert.Contains(t, answer, "10 km")
	assert.Contains(t, gen.prompt, "[1] "+results[0].Document)
	assert.Len(t, answerCtx.Results, 2)

	// Re-ingesting the same rows leaves the store unchanged.
	report2, err := p.Run(ctx, rows, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report2.Succeeded)

	again, err := retriever.Retrieve(ctx, "How far did I run in January?", 10)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}
