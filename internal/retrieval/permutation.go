package retrieval

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/itemforge/itemforge/internal/corpus"
	"github.com/itemforge/itemforge/internal/model"
)

// Enumeration caps keep the permutation pool bounded regardless of how rich
// the corpus vocabulary is.
const (
	maxSingleTopics         = 8
	maxSingleTags           = 8
	maxCrossTopics          = 3
	maxCrossTags            = 3
	maxTopicPairs           = 4
	defaultVocabularySample = 300
)

// permutation discovers the topics/tags actually present in the corpus,
// unions them with the request's own, and enumerates contexts per tier:
// broad, one per topic, one per tag, a bounded topic×tag cross-product, and
// adjacent-topic pairs. The list is shuffled once and consumed round-robin,
// cycling back to the start once exhausted.
type permutation struct {
	req         model.GenerationRequest
	vocab       corpus.VocabularySource
	rng         *rand.Rand
	sampleLimit int
	pools       map[model.Tier][]model.RetrievalContext
	cursor      map[model.Tier]int
	ready       bool
	served      int
}

func newPermutation(req model.GenerationRequest, vocab corpus.VocabularySource, seed int64, sampleLimit int) *permutation {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if sampleLimit <= 0 {
		sampleLimit = defaultVocabularySample
	}
	return &permutation{
		req:         req,
		vocab:       vocab,
		rng:         rand.New(rand.NewSource(seed)),
		sampleLimit: sampleLimit,
		pools:       make(map[model.Tier][]model.RetrievalContext),
		cursor:      make(map[model.Tier]int),
	}
}

func (p *permutation) Name() string { return "permutation" }

func (p *permutation) Prepare(ctx context.Context, round int, remaining model.TierCounts, feedback *model.EvaluationReport) error {
	if p.ready {
		return nil
	}

	topics, tags, err := p.vocab.Vocabulary(ctx, p.req.Subject, p.req.Chapter, p.sampleLimit)
	if err != nil {
		return fmt.Errorf("discover vocabulary: %w", err)
	}
	topics = union(topics, p.req.Topics)
	tags = union(tags, p.req.Tags)

	for _, tier := range model.Tiers {
		if p.req.Requested(tier) == 0 {
			continue
		}
		pool := p.enumerate(tier, topics, tags)
		p.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		p.pools[tier] = pool
	}

	p.ready = true
	return nil
}

func (p *permutation) enumerate(tier model.Tier, topics, tags []string) []model.RetrievalContext {
	var pool []model.RetrievalContext

	// Broad: no topic/tag constraint.
	pool = append(pool, model.RetrievalContext{
		ID:   model.ContextID(tier, "broad"),
		Tier: tier,
	})

	for _, topic := range capped(topics, maxSingleTopics) {
		pool = append(pool, model.RetrievalContext{
			ID:    model.ContextID(tier, "topic", topic),
			Tier:  tier,
			Topic: topic,
		})
	}

	for _, tag := range capped(tags, maxSingleTags) {
		pool = append(pool, model.RetrievalContext{
			ID:   model.ContextID(tier, "tag", tag),
			Tier: tier,
			Tag:  tag,
		})
	}

	for _, topic := range capped(topics, maxCrossTopics) {
		for _, tag := range capped(tags, maxCrossTags) {
			pool = append(pool, model.RetrievalContext{
				ID:    model.ContextID(tier, "cross", topic, tag),
				Tier:  tier,
				Topic: topic,
				Tag:   tag,
			})
		}
	}

	pairs := 0
	for i := 0; i+1 < len(topics) && pairs < maxTopicPairs; i++ {
		pool = append(pool, model.RetrievalContext{
			ID:     model.ContextID(tier, "pair", topics[i], topics[i+1]),
			Tier:   tier,
			Topic:  topics[i],
			Topic2: topics[i+1],
		})
		pairs++
	}

	return pool
}

func (p *permutation) Next(tier model.Tier) (model.RetrievalContext, bool) {
	pool := p.pools[tier]
	if len(pool) == 0 {
		return model.RetrievalContext{}, false
	}
	rc := pool[p.cursor[tier]%len(pool)]
	p.cursor[tier]++
	p.served++
	return rc, true
}

func (p *permutation) Diagnostics() Diagnostics {
	total := 0
	for _, pool := range p.pools {
		total += len(pool)
	}
	return Diagnostics{ContextsEnumerated: total}
}

func capped(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func union(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range extra {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
