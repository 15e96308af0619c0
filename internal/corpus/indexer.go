package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/itemforge/itemforge/internal/worker"
)

// Indexer bulk-loads curated items: insert into the document store, embed,
// and upsert into the vector index. Ingest is the one path that fans out;
// generation itself stays single-worker.
type Indexer struct {
	store    *SQLiteStore
	embedder Embedder
	index    *VectorIndex
	limiter  *worker.Limiter
	workers  int
	log      *slog.Logger
}

// NewIndexer creates an indexer
func NewIndexer(store *SQLiteStore, embedder Embedder, index *VectorIndex, workers int, log *slog.Logger) *Indexer {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		index:    index,
		limiter:  worker.NewLimiter(5, 5),
		workers:  workers,
		log:      log,
	}
}

// LoadResult summarizes one bulk load
type LoadResult struct {
	Inserted int
	Indexed  int
	Failed   int
}

// Load ingests items. Embedding/upserting is skipped when no vector index is
// configured; the document store is still populated.
func (ix *Indexer) Load(ctx context.Context, items []Item) (*LoadResult, error) {
	result := &LoadResult{}

	for _, item := range items {
		if item.ID == "" || item.Subject == "" || item.Text == "" {
			result.Failed++
			ix.log.Warn("skipping item with missing id/subject/text", "id", item.ID)
			continue
		}
		if err := ix.store.InsertItem(ctx, item); err != nil {
			return result, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
		result.Inserted++
	}

	if ix.index == nil || ix.embedder == nil {
		return result, nil
	}

	results := worker.Map(ctx, ix.workers, items, func(ctx context.Context, item Item) (Vector, error) {
		if err := ix.limiter.Wait(ctx, "embed"); err != nil {
			return Vector{}, err
		}
		vec, err := ix.embedder.Embed(ctx, item.Text)
		if err != nil {
			return Vector{}, err
		}
		return Vector{
			ID:     item.ID,
			Values: vec,
			Metadata: map[string]any{
				"subject":    item.Subject,
				"chapter":    item.Chapter,
				"difficulty": item.Difficulty,
				"topics":     item.Topics,
				"tags":       item.Tags,
			},
		}, nil
	})

	vectors := make([]Vector, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			result.Failed++
			ix.log.Warn("embed failed", "index", r.Index, "error", r.Err)
			continue
		}
		vectors = append(vectors, r.Value)
	}

	// Upsert in batches to keep request bodies bounded.
	const batchSize = 100
	for start := 0; start < len(vectors); start += batchSize {
		end := min(start+batchSize, len(vectors))
		if err := ix.limiter.Wait(ctx, "vector"); err != nil {
			return result, err
		}
		if err := ix.index.Upsert(ctx, vectors[start:end]); err != nil {
			return result, fmt.Errorf("upsert batch: %w", err)
		}
		result.Indexed += end - start
	}

	return result, nil
}
