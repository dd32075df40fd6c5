package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/llm"
)

func TestOpenAIEmbeddingClient_EmbedBatch(t *testing.T) {
	var gotBody struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Return embeddings out of order to prove the index field wins.
		resp := map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := llm.NewOpenAIEmbeddingClient(llm.OpenAIEmbeddingConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})

	vecs, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{1, 0}, vecs[0])
	assert.Equal(t, []float64{0, 1}, vecs[1])

	assert.Equal(t, "text-embedding-3-small", gotBody.Model)
	assert.Equal(t, []string{"first", "second"}, gotBody.Input)
}

func TestOpenAIEmbeddingClient_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := llm.NewOpenAIEmbeddingClient(llm.OpenAIEmbeddingConfig{APIKey: "k", BaseURL: srv.URL})

	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err), "429 must be classified as transient")

	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
}

func TestOpenAIEmbeddingClient_BadRequestIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid input", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := llm.NewOpenAIEmbeddingClient(llm.OpenAIEmbeddingConfig{APIKey: "k", BaseURL: srv.URL})

	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, llm.IsTransient(err))
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "You ran 10 km."}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := llm.NewOpenAIClient(llm.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})

	answer, err := client.Complete(context.Background(), "How far did I run?")
	require.NoError(t, err)
	assert.Equal(t, "You ran 10 km.", answer)
}
