package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/itemforge/itemforge/internal/cache"
	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/worker"
)

// Session is the per-request view over the corpus. It owns the request-scoped
// retrieval cache; a fresh Session per generation run keeps concurrent
// requests isolated without locks.
type Session struct {
	embedder Embedder
	searcher Searcher
	docs     DocumentStore
	limiter  *worker.Limiter
	cache    cache.Cache
	topK     int
}

// NewSession creates a session with its own retrieval cache. A nil limiter
// leaves embed/search calls unthrottled.
func NewSession(embedder Embedder, searcher Searcher, docs DocumentStore, limiter *worker.Limiter, topK int) *Session {
	if topK <= 0 {
		topK = 50
	}
	return &Session{
		embedder: embedder,
		searcher: searcher,
		docs:     docs,
		limiter:  limiter,
		cache:    cache.NewMemoryCache(30*time.Minute, time.Hour),
		topK:     topK,
	}
}

// Retrieve returns inspiration records for one retrieval context, in the
// search service's ranked order. Results are cached by context ID for the
// lifetime of the session.
func (s *Session) Retrieve(ctx context.Context, req model.GenerationRequest, rc model.RetrievalContext) ([]model.InspirationRecord, error) {
	key := cache.Key("retrieve", rc.ID)
	if data, ok := s.cache.Get(key); ok {
		var records []model.InspirationRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
	}

	if err := s.wait(ctx, "embed"); err != nil {
		return nil, err
	}
	vector, err := s.embedder.Embed(ctx, QueryText(req, rc))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if err := s.wait(ctx, "vector"); err != nil {
		return nil, err
	}
	matches, err := s.searcher.Search(ctx, vector, s.topK, Filter(req, rc))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) == 0 {
		s.put(key, nil)
		return nil, nil
	}

	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}

	fetched, err := s.docs.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch bodies: %w", err)
	}

	byID := make(map[string]model.InspirationRecord, len(fetched))
	for _, rec := range fetched {
		byID[rec.ID] = rec
	}

	// Preserve ranked order; drop anything without a usable body.
	records := make([]model.InspirationRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok || !rec.Usable() {
			continue
		}
		rec.Score = scores[id]
		records = append(records, rec)
	}

	s.put(key, records)
	return records, nil
}

func (s *Session) wait(ctx context.Context, service string) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx, service); err != nil {
		return fmt.Errorf("rate limit %s: %w", service, err)
	}
	return nil
}

func (s *Session) put(key string, records []model.InspirationRecord) {
	if data, err := json.Marshal(records); err == nil {
		_ = s.cache.Set(key, data, 0)
	}
}

// QueryText builds the embedding input for one retrieval context. Subject is
// always present, so every context yields a meaningful query.
func QueryText(req model.GenerationRequest, rc model.RetrievalContext) string {
	var b strings.Builder
	b.WriteString(req.Subject)
	if req.Chapter != "" {
		b.WriteString(" " + req.Chapter)
	}
	b.WriteString(" " + string(rc.Tier) + " difficulty exam question")
	for _, part := range []string{rc.Topic, rc.Topic2, rc.Tag, rc.Keyword} {
		if part != "" {
			b.WriteString(" " + part)
		}
	}
	if rc.Notes != "" {
		b.WriteString(" " + rc.Notes)
	} else if req.Description != "" {
		b.WriteString(" " + req.Description)
	}
	return b.String()
}

// Filter builds the metadata filter restricting subject/chapter/difficulty
// and, when the context carries them, topic/tag membership.
func Filter(req model.GenerationRequest, rc model.RetrievalContext) map[string]any {
	filter := map[string]any{
		"subject": map[string]any{"$eq": req.Subject},
	}
	if req.Chapter != "" {
		filter["chapter"] = map[string]any{"$eq": req.Chapter}
	}
	if rc.Tier != "" {
		filter["difficulty"] = map[string]any{"$eq": string(rc.Tier)}
	}

	topics := make([]string, 0, 2)
	for _, t := range []string{rc.Topic, rc.Topic2} {
		if t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) > 0 {
		filter["topics"] = map[string]any{"$in": topics}
	}
	if rc.Tag != "" {
		filter["tags"] = map[string]any{"$in": []string{rc.Tag}}
	}
	return filter
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
