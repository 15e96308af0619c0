// Package engine runs the iterative generation loop: retrieval contexts in,
// validated exam items out, round after round until quotas are met or the
// round budget is spent.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/itemforge/itemforge/internal/corpus"
	"github.com/itemforge/itemforge/internal/eval"
	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/retrieval"
	"github.com/itemforge/itemforge/internal/synth"
	"github.com/itemforge/itemforge/internal/worker"
)

// Deps carries the external collaborators. All of them are interfaces so
// tests can run the full loop against fakes.
type Deps struct {
	Provider   llm.Provider
	Embedder   corpus.Embedder
	Searcher   corpus.Searcher
	Docs       corpus.DocumentStore
	Vocabulary corpus.VocabularySource

	// Seed fixes strategy shuffling for reproducible runs; 0 means time-based
	Seed int64

	Logger *slog.Logger
}

// Engine orchestrates one generation run at a time. The engine itself is
// stateless across runs; everything request-scoped lives inside Generate.
type Engine struct {
	cfg  *model.Config
	deps Deps
	log  *slog.Logger
}

// New creates an engine
func New(cfg *model.Config, deps Deps) *Engine {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, deps: deps, log: log}
}

// Generate runs the full loop for one request. Partial fulfillment is a
// valid result; only misconfiguration surfaces as an error before any
// external call is made.
func (e *Engine) Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkDeps(); err != nil {
		return nil, err
	}

	chain := llm.NewChain(e.deps.Provider, e.cfg.LLM.Models, e.cfg.LLM.RequestsPerSecond, e.cfg.LLM.MaxTokens)

	strategy, err := retrieval.New(e.cfg.Engine.Strategy, req, retrieval.Deps{
		Vocabulary:  e.deps.Vocabulary,
		Chain:       chain,
		Seed:        e.deps.Seed,
		SampleLimit: e.cfg.Corpus.BroadTopK,
	})
	if err != nil {
		return nil, err
	}

	// Request-scoped state: fresh session cache, dedup ledger, slot list.
	// Embed and vector calls share the configured throttle with generation.
	limiter := worker.NewLimiter(e.cfg.LLM.RequestsPerSecond, 0)
	session := corpus.NewSession(e.deps.Embedder, e.deps.Searcher, e.deps.Docs, limiter, e.cfg.Corpus.FocusedTopK)
	ledger := synth.NewLedger()
	synthesizer := synth.New(chain, e.cfg.Engine, e.log)

	var evaluator *eval.Evaluator
	if e.cfg.Engine.Evaluate {
		evaluator = eval.New(chain, e.log)
	}

	slots := newSlots(req)
	var items []model.GeneratedItem
	var lastReport *model.EvaluationReport
	roundsUsed := 0
	contextsConsumed := 0

	maxRounds := req.Rounds()
	for round := 1; round <= maxRounds; round++ {
		unmet := remaining(slots)
		if unmet.Total() == 0 && e.scoresClear(evaluator, lastReport) {
			break
		}

		prepErr := strategy.Prepare(ctx, round, unmet, lastReport)
		if prepErr != nil {
			e.log.Warn("strategy preparation failed", "strategy", strategy.Name(), "round", round, "error", prepErr)
		}

		progress := 0
		served := 0
		for _, s := range slots {
			if s.state == slotAccepted {
				continue
			}

			rc, ok := strategy.Next(s.tier)
			if !ok {
				continue
			}
			served++
			contextsConsumed++

			records, err := session.Retrieve(ctx, req, rc)
			if err != nil {
				e.log.Warn("retrieval failed", "context", rc.ID, "error", err)
				continue
			}
			e.log.Debug("context retrieved", "context", rc.ID, "inspirations", len(records))

			item, err := synthesizer.Synthesize(ctx, req, s.tier, rc, records, ledger)
			if err != nil {
				e.log.Warn("synthesis failed", "context", rc.ID, "error", err)
				continue
			}
			if item == nil {
				e.log.Debug("slot unfilled this round", "tier", s.tier, "context", rc.ID)
				continue
			}

			s.state = slotAccepted
			items = append(items, *item)
			progress++
		}

		roundsUsed = round
		e.log.Info("round complete", "round", round, "generated", len(items),
			"requested", req.TotalRequested(), "contexts", served)

		if evaluator != nil && len(items) > 0 {
			report := evaluator.Evaluate(ctx, req, items)
			lastReport = &report
			e.log.Info("paper evaluated", "round", round, "overall", report.OverallScore,
				"coverage", report.CoverageScore, "diversity", report.DiversityScore)
		}

		if remaining(slots).Total() == 0 && e.scoresClear(evaluator, lastReport) {
			break
		}

		// Strategies exhausted with quota unmet: another round cannot help.
		// A failed preparation is not exhaustion; the next round retries it.
		if progress == 0 && served == 0 && prepErr == nil && remaining(slots).Total() > 0 {
			e.log.Info("no contexts left, stopping early", "round", round)
			break
		}
	}

	diag := strategy.Diagnostics()
	result := &model.GenerationResult{
		Items: items,
		Meta: model.GenerationMeta{
			Requested: model.TierCounts{
				model.TierEasy:   req.EasyCount,
				model.TierMedium: req.MediumCount,
				model.TierHard:   req.HardCount,
			},
			Generated:        generatedCounts(items),
			RoundsUsed:       roundsUsed,
			ContextsConsumed: contextsConsumed,
			Strategy:         strategy.Name(),
			KeywordsUsed:     diag.KeywordsUsed,
			FinalEvaluation:  lastReport,
		},
	}

	if len(items) < req.TotalRequested() {
		e.log.Warn("partial fulfillment", "generated", len(items), "requested", req.TotalRequested(),
			"duplicates_rejected", ledger.Duplicates())
	}
	return result, nil
}

// scoresClear reports whether the evaluator's bars allow stopping. With the
// evaluator disabled the answer is always yes; with it enabled a report must
// exist and clear both bars.
func (e *Engine) scoresClear(evaluator *eval.Evaluator, report *model.EvaluationReport) bool {
	if evaluator == nil {
		return true
	}
	if report == nil {
		return false
	}
	return report.OverallScore >= e.cfg.Engine.MinOverallScore &&
		report.DiversityScore >= e.cfg.Engine.MinDiversityScore
}

func (e *Engine) checkDeps() error {
	switch {
	case e.deps.Provider == nil:
		return fmt.Errorf("%w: text-generation provider is required", model.ErrConfiguration)
	case e.deps.Embedder == nil:
		return fmt.Errorf("%w: embedder is required", model.ErrConfiguration)
	case e.deps.Searcher == nil:
		return fmt.Errorf("%w: vector searcher is required", model.ErrConfiguration)
	case e.deps.Docs == nil:
		return fmt.Errorf("%w: document store is required", model.ErrConfiguration)
	}
	return nil
}
