package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	// BaseURL is the Ollama API URL (default: http://localhost:11434)
	BaseURL string

	// Model is the model name used for completions or embeddings
	// (defaults: qwen2.5:7b for completion, nomic-embed-text for embeddings)
	Model string

	// Timeout for API calls (default: 120s; local models load lazily and the
	// first call can be slow)
	Timeout time.Duration
}

// OllamaClient implements both TextGenerator and EmbeddingGenerator against
// a local Ollama server. No credentials are required.
type OllamaClient struct {
	cfg            OllamaConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OllamaClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// ollamaGenerateRequest is the request body for POST /api/generate.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the (non-streaming) response from POST /api/generate.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Complete sends a single-turn completion to Ollama and returns the response text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *OllamaClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := ollamaGenerateRequest{Model: c.cfg.Model, Prompt: prompt, Stream: false}

	var respData ollamaGenerateResponse
	if err := postJSON(ctx, c.client, "ollama", c.cfg.BaseURL+"/api/generate", nil, reqBody, &respData); err != nil {
		return "", err
	}
	return respData.Response, nil
}

// ollamaEmbedRequest is the request body for POST /api/embed.
// Input accepts a string array for batch embedding.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the response from POST /api/embed.
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for all texts in one API call, returned in
// input order.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float64), nil
}

func (c *OllamaClient) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := ollamaEmbedRequest{Model: c.cfg.Model, Input: texts}

	var respData ollamaEmbedResponse
	if err := postJSON(ctx, c.client, "ollama", c.cfg.BaseURL+"/api/embed", nil, reqBody, &respData); err != nil {
		return nil, err
	}

	if len(respData.Embeddings) != len(texts) {
		return nil, &ProviderError{
			Provider: "ollama",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respData.Embeddings)),
		}
	}
	for i, v := range respData.Embeddings {
		if len(v) == 0 {
			return nil, &ProviderError{Provider: "ollama", Err: fmt.Errorf("empty embedding at index %d", i)}
		}
	}
	return respData.Embeddings, nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.cfg.Model
}

// Compile-time assertions.
var (
	_ TextGenerator      = (*OllamaClient)(nil)
	_ EmbeddingGenerator = (*OllamaClient)(nil)
)
