package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/itemforge/itemforge/internal/cache"
	"github.com/itemforge/itemforge/internal/model"
)

// OpenAIEmbedder implements Embedder via OpenAI's embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates a new embedder
func NewOpenAIEmbedder(apiKey, baseURL, embedModel string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required for embeddings", model.ErrConfiguration)
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  embedModel,
	}, nil
}

// Embed returns the embedding vector for text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", model.ErrUpstream, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embeddings response is empty", model.ErrUpstream)
	}
	return resp.Data[0].Embedding, nil
}

// CachingEmbedder wraps an Embedder with a cache. Embeddings are pure given a
// stable model, so entries stay valid indefinitely; the key includes the
// model name so a model switch invalidates naturally.
type CachingEmbedder struct {
	inner Embedder
	model string
	cache cache.Cache
	ttl   time.Duration
}

// NewCachingEmbedder wraps inner with c
func NewCachingEmbedder(inner Embedder, embedModel string, c cache.Cache, ttl time.Duration) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, model: embedModel, cache: c, ttl: ttl}
}

// Embed returns the cached vector if present, delegating otherwise
func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("embed", e.model, text)

	if data, ok := e.cache.Get(key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(key, data, e.ttl)
	}
	return vec, nil
}
