package retrieval

import (
	"context"
	"strings"

	"github.com/itemforge/itemforge/internal/model"
)

// plain builds one context per non-zero-count tier from the request's own
// subject/chapter/topics/tags. A tier's context serves all of that tier's
// slots in the first round and is consumed at the round boundary; it is never
// offered again verbatim.
type plain struct {
	pool     map[model.Tier]model.RetrievalContext
	consumed bool
	served   int
}

func newPlain(req model.GenerationRequest) *plain {
	p := &plain{
		pool: make(map[model.Tier]model.RetrievalContext),
	}

	notes := strings.TrimSpace(strings.Join(append(append([]string{}, req.Topics...), req.Tags...), " "))
	for _, tier := range model.Tiers {
		if req.Requested(tier) == 0 {
			continue
		}
		p.pool[tier] = model.RetrievalContext{
			ID:    model.ContextID(tier, "plain"),
			Tier:  tier,
			Notes: notes,
		}
	}
	return p
}

func (p *plain) Name() string { return "plain" }

func (p *plain) Prepare(ctx context.Context, round int, remaining model.TierCounts, feedback *model.EvaluationReport) error {
	if round > 1 {
		p.consumed = true
	}
	return nil
}

func (p *plain) Next(tier model.Tier) (model.RetrievalContext, bool) {
	if p.consumed {
		return model.RetrievalContext{}, false
	}
	rc, ok := p.pool[tier]
	if !ok {
		return model.RetrievalContext{}, false
	}
	p.served++
	return rc, true
}

func (p *plain) Diagnostics() Diagnostics {
	return Diagnostics{ContextsEnumerated: len(p.pool)}
}
