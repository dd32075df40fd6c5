// Package llm provides narrow client interfaces for the two external model
// capabilities the pipeline consumes: text generation and text embedding.
// Implementations are plain HTTP clients wrapped in a circuit breaker;
// callers layer bounded retries on top via RetryPolicy.
package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// The answer composer uses single-string completion style (not chat history).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Both methods are deterministic for a fixed model version. EmbedBatch must
// return one vector per input text, in input order; implementations without
// a native batch endpoint may loop over Embed.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	GetModel() string
}
