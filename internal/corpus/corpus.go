// Package corpus is the read-only facade over the embedding service, the
// vector similarity search service, and the document store of curated items.
package corpus

import (
	"context"

	"github.com/itemforge/itemforge/internal/model"
)

// Embedder turns text into a fixed-dimensionality vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one ranked hit from the similarity search service
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Searcher queries the vector similarity search service. The filter supports
// exact-match ($eq) and set-membership ($in) on metadata fields.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error)
}

// DocumentStore fetches full item bodies for corpus ids
type DocumentStore interface {
	FetchByIDs(ctx context.Context, ids []string) ([]model.InspirationRecord, error)
}

// VocabularySource exposes the distinct topic/tag values present in the
// corpus, used by the permutation strategy to enumerate contexts
type VocabularySource interface {
	Vocabulary(ctx context.Context, subject, chapter string, limit int) (topics, tags []string, err error)
}
