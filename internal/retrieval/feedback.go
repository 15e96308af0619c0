package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/parse"
)

const (
	keywordsPerRound = 10
	keywordSystemPrompt = "You are a search-query strategist for an exam question bank. " +
		"You produce short, diverse retrieval phrases. Respond ONLY with a JSON array of strings."
)

// feedback asks the text-generation service for fresh search phrases each
// round, conditioned on the previous round's evaluation report and the
// keywords already used. Each keyword becomes one context per needed tier.
type feedback struct {
	req    model.GenerationRequest
	chain  *llm.Chain
	queues map[model.Tier][]model.RetrievalContext
	used   []string
	served int
}

func newFeedback(req model.GenerationRequest, chain *llm.Chain) *feedback {
	return &feedback{
		req:    req,
		chain:  chain,
		queues: make(map[model.Tier][]model.RetrievalContext),
	}
}

func (f *feedback) Name() string { return "feedback" }

func (f *feedback) Prepare(ctx context.Context, round int, remaining model.TierCounts, feedback *model.EvaluationReport) error {
	keywords, err := f.generateKeywords(ctx, feedback)
	if err != nil {
		return err
	}

	for _, kw := range keywords {
		if f.seen(kw) {
			continue // the prompt forbids repeats, but models drift
		}
		f.used = append(f.used, kw)
		for _, tier := range model.Tiers {
			if remaining[tier] <= 0 {
				continue
			}
			f.queues[tier] = append(f.queues[tier], model.RetrievalContext{
				ID:      model.ContextID(tier, "kw", kw),
				Tier:    tier,
				Keyword: kw,
			})
		}
	}
	return nil
}

func (f *feedback) generateKeywords(ctx context.Context, report *model.EvaluationReport) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce %d short search phrases (3-6 words each) for retrieving exam questions.\n\n", keywordsPerRound)
	fmt.Fprintf(&b, "Subject: %s\n", f.req.Subject)
	if f.req.Chapter != "" {
		fmt.Fprintf(&b, "Chapter: %s\n", f.req.Chapter)
	}
	if len(f.req.Topics) > 0 {
		fmt.Fprintf(&b, "Topics of interest: %s\n", strings.Join(f.req.Topics, ", "))
	}
	if len(f.req.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(f.req.Tags, ", "))
	}
	if f.req.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", f.req.Description)
	}

	if report != nil {
		b.WriteString("\nA reviewer critiqued the questions assembled so far:\n")
		if len(report.WeakAreas) > 0 {
			fmt.Fprintf(&b, "- Weak areas: %s\n", strings.Join(report.WeakAreas, "; "))
		}
		if len(report.MissingTopics) > 0 {
			fmt.Fprintf(&b, "- Missing topics: %s\n", strings.Join(report.MissingTopics, "; "))
		}
		if len(report.Suggestions) > 0 {
			fmt.Fprintf(&b, "- Suggestions: %s\n", strings.Join(report.Suggestions, "; "))
		}
		fmt.Fprintf(&b, "- Scores: overall %d/10, coverage %d/10, diversity %d/10\n",
			report.OverallScore, report.CoverageScore, report.DiversityScore)
		b.WriteString("Target the weaknesses above.\n")
	}

	if len(f.used) > 0 {
		fmt.Fprintf(&b, "\nDo NOT repeat any of these already-used phrases:\n%s\n", strings.Join(f.used, "\n"))
	}

	b.WriteString("\nRespond with a JSON array of strings only.")

	raw, err := f.chain.Complete(ctx, keywordSystemPrompt, b.String(), 0.9)
	if err != nil {
		return nil, fmt.Errorf("generate keywords: %w", err)
	}

	keywords, err := parse.StringList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword response: %v", model.ErrValidation, err)
	}
	return keywords, nil
}

func (f *feedback) seen(kw string) bool {
	for _, u := range f.used {
		if strings.EqualFold(u, kw) {
			return true
		}
	}
	return false
}

func (f *feedback) Next(tier model.Tier) (model.RetrievalContext, bool) {
	queue := f.queues[tier]
	if len(queue) == 0 {
		return model.RetrievalContext{}, false
	}
	rc := queue[0]
	f.queues[tier] = queue[1:]
	f.served++
	return rc, true
}

func (f *feedback) Diagnostics() Diagnostics {
	return Diagnostics{
		ContextsEnumerated: f.served,
		KeywordsUsed:       append([]string(nil), f.used...),
	}
}
