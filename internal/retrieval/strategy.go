// Package retrieval builds the search contexts that drive corpus retrieval.
// Three interchangeable strategies of increasing sophistication are
// selectable per request.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/itemforge/itemforge/internal/corpus"
	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
)

// Strategy produces retrieval contexts for the scheduler. Implementations
// hold per-request state and must not be shared across requests.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Prepare is called at the start of each round. remaining holds the
	// unmet quota per tier; feedback is the previous round's evaluation
	// report, nil on the first round or when the evaluator is disabled.
	Prepare(ctx context.Context, round int, remaining model.TierCounts, feedback *model.EvaluationReport) error

	// Next returns the next context for a tier. ok is false when the
	// strategy has nothing further to offer for that tier this round.
	Next(tier model.Tier) (model.RetrievalContext, bool)

	// Diagnostics reports strategy-specific counters for the result meta
	Diagnostics() Diagnostics
}

// Diagnostics captures what a strategy consumed during the run
type Diagnostics struct {
	ContextsEnumerated int
	KeywordsUsed       []string
}

// Deps carries the collaborators a strategy may need
type Deps struct {
	// Vocabulary discovers corpus topics/tags (permutation strategy)
	Vocabulary corpus.VocabularySource

	// Chain synthesizes search keywords (feedback strategy)
	Chain *llm.Chain

	// Seed fixes the permutation shuffle; 0 means time-based
	Seed int64

	// SampleLimit caps vocabulary-discovery sampling; 0 uses the default
	SampleLimit int
}

// New creates a strategy by name for one generation request
func New(name string, req model.GenerationRequest, deps Deps) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "plain":
		return newPlain(req), nil

	case "permutation":
		if deps.Vocabulary == nil {
			return nil, fmt.Errorf("%w: permutation strategy needs a corpus vocabulary source", model.ErrConfiguration)
		}
		return newPermutation(req, deps.Vocabulary, deps.Seed, deps.SampleLimit), nil

	case "feedback":
		if deps.Chain == nil {
			return nil, fmt.Errorf("%w: feedback strategy needs a completion chain", model.ErrConfiguration)
		}
		return newFeedback(req, deps.Chain), nil

	default:
		return nil, fmt.Errorf("%w: unknown strategy %q (supported: plain, permutation, feedback)", model.ErrConfiguration, name)
	}
}
