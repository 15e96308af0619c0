// Package eval scores an assembled item set as a whole paper: quality,
// coverage, diversity, and difficulty balance on a 1-10 scale, plus free-form
// feedback that steers the next retrieval round.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/parse"
)

const systemPrompt = "You are a strict exam paper reviewer. You assess a set of multiple-choice " +
	"questions as a whole paper, not question by question. Respond ONLY with a JSON object: " +
	`{"overall_score": 1, "coverage_score": 1, "diversity_score": 1, "difficulty_balance_score": 1, ` +
	`"suggestions": [], "weak_areas": [], "missing_topics": []}. Scores are integers from 1 to 10.`

// stemPreviewLen bounds how much of each question goes into the review prompt
const stemPreviewLen = 160

// Evaluator critiques assembled papers via the completion chain
type Evaluator struct {
	chain *llm.Chain
	log   *slog.Logger
}

// New creates an evaluator
func New(chain *llm.Chain, log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{chain: chain, log: log}
}

// Evaluate reviews the current item set. It never fails the run: upstream or
// parse trouble degrades to the neutral report so generation continues.
func (e *Evaluator) Evaluate(ctx context.Context, req model.GenerationRequest, items []model.GeneratedItem) model.EvaluationReport {
	raw, err := e.chain.Complete(ctx, systemPrompt, e.buildPrompt(req, items), 0.3)
	if err != nil {
		e.log.Warn("evaluation unavailable, using neutral report", "error", err)
		return model.NeutralReport()
	}

	var report model.EvaluationReport
	if err := parse.JSONObject(raw, &report); err != nil {
		e.log.Warn("evaluation response unparseable, using neutral report", "error", err)
		return model.NeutralReport()
	}

	report.OverallScore = clampScore(report.OverallScore)
	report.CoverageScore = clampScore(report.CoverageScore)
	report.DiversityScore = clampScore(report.DiversityScore)
	report.DifficultyBalanceScore = clampScore(report.DifficultyBalanceScore)
	return report
}

func (e *Evaluator) buildPrompt(req model.GenerationRequest, items []model.GeneratedItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review this draft exam paper for subject %q", req.Subject)
	if req.Chapter != "" {
		fmt.Fprintf(&b, ", chapter %q", req.Chapter)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Target distribution: %d easy, %d medium, %d hard.\n", req.EasyCount, req.MediumCount, req.HardCount)
	if len(req.Topics) > 0 {
		fmt.Fprintf(&b, "Topics the paper should cover: %s\n", strings.Join(req.Topics, ", "))
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Description)
	}

	b.WriteString("\nQuestions so far:\n")
	for i, item := range items {
		stem := item.Text
		if len(stem) > stemPreviewLen {
			stem = stem[:stemPreviewLen] + "..."
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, item.Difficulty, stem)
		if len(item.Topics) > 0 {
			fmt.Fprintf(&b, " (topics: %s)", strings.Join(item.Topics, ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nScore the paper and list concrete weaknesses. Respond with the JSON object only.")
	return b.String()
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
