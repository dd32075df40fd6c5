// Package query implements the answer path: embed a question, retrieve the
// most relevant activity summaries from the vector store, and compose a
// coach-style answer with a text-generation model.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrypster/paceline/internal/llm"
	"github.com/scrypster/paceline/internal/storage"
)

// Retriever embeds free-text questions and ranks stored summaries against
// them.
type Retriever struct {
	store      storage.VectorStore
	embedder   llm.EmbeddingGenerator
	collection string
	retry      llm.RetryPolicy
}

// NewRetriever creates a Retriever over the given store and embedding
// provider.
func NewRetriever(store storage.VectorStore, embedder llm.EmbeddingGenerator, collection string) *Retriever {
	return &Retriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		retry:      llm.DefaultRetryPolicy(),
	}
}

// Retrieve embeds the question and returns the topK most similar summaries,
// ranked by descending similarity. A store that has never been ingested into
// surfaces storage.ErrCollectionNotFound unmodified, so the caller can tell
// the user to run ingest rather than reporting a generic failure.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]storage.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", storage.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", storage.ErrInvalidInput, topK)
	}

	var vec []float64
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = r.embedder.Embed(ctx, question)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("query: embed question: %w", err)
	}

	results, err := r.store.Query(ctx, r.collection, vec, topK)
	if err != nil {
		return nil, err
	}
	return results, nil
}
