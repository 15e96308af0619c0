package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
)

type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.prompt = req.Prompt
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Text: s.response}, nil
}

func (s *stubProvider) IsAvailable(context.Context) bool { return true }

func newTestEvaluator(p llm.Provider) *Evaluator {
	return New(llm.NewChain(p, []string{"m"}, 0, 1000), nil)
}

func sampleItems() []model.GeneratedItem {
	return []model.GeneratedItem{
		{Text: "What is H2O?", Difficulty: model.TierEasy, Topics: []string{"water"}},
		{Text: "Balance the equation for combustion of methane.", Difficulty: model.TierHard},
	}
}

func TestEvaluateParsesReport(t *testing.T) {
	p := &stubProvider{response: `{"overall_score": 8, "coverage_score": 7,
"diversity_score": 6, "difficulty_balance_score": 9,
"weak_areas": ["no organic chemistry"], "missing_topics": ["stoichiometry"]}`}

	report := newTestEvaluator(p).Evaluate(context.Background(),
		model.GenerationRequest{Subject: "chemistry", EasyCount: 1, HardCount: 1}, sampleItems())

	if report.OverallScore != 8 || report.DiversityScore != 6 {
		t.Errorf("scores not parsed: %+v", report)
	}
	if len(report.WeakAreas) != 1 || report.WeakAreas[0] != "no organic chemistry" {
		t.Errorf("weak areas not parsed: %v", report.WeakAreas)
	}
	if len(report.MissingTopics) != 1 {
		t.Errorf("missing topics not parsed: %v", report.MissingTopics)
	}
}

func TestEvaluateClampsScores(t *testing.T) {
	p := &stubProvider{response: `{"overall_score": 15, "coverage_score": 0,
"diversity_score": -3, "difficulty_balance_score": 10}`}

	report := newTestEvaluator(p).Evaluate(context.Background(),
		model.GenerationRequest{Subject: "chemistry"}, sampleItems())

	if report.OverallScore != 10 {
		t.Errorf("overall = %d, want clamped to 10", report.OverallScore)
	}
	if report.CoverageScore != 1 || report.DiversityScore != 1 {
		t.Errorf("low scores not clamped to 1: %+v", report)
	}
}

func TestEvaluateNeutralOnUpstreamError(t *testing.T) {
	p := &stubProvider{err: errors.New("timeout")}

	report := newTestEvaluator(p).Evaluate(context.Background(),
		model.GenerationRequest{Subject: "chemistry"}, sampleItems())

	assertNeutral(t, report)
}

func TestEvaluateNeutralOnGarbage(t *testing.T) {
	p := &stubProvider{response: "The paper looks fine to me."}

	report := newTestEvaluator(p).Evaluate(context.Background(),
		model.GenerationRequest{Subject: "chemistry"}, sampleItems())

	assertNeutral(t, report)
}

func assertNeutral(t *testing.T, report model.EvaluationReport) {
	t.Helper()
	neutral := model.NeutralReport()
	if report.OverallScore != neutral.OverallScore ||
		report.CoverageScore != neutral.CoverageScore ||
		report.DiversityScore != neutral.DiversityScore ||
		report.DifficultyBalanceScore != neutral.DifficultyBalanceScore {
		t.Errorf("expected neutral scores, got %+v", report)
	}
	if len(report.Suggestions) != 0 || len(report.WeakAreas) != 0 || len(report.MissingTopics) != 0 {
		t.Errorf("neutral report should carry no feedback: %+v", report)
	}
}

func TestEvaluatePromptContents(t *testing.T) {
	p := &stubProvider{response: `{"overall_score": 5, "coverage_score": 5, "diversity_score": 5, "difficulty_balance_score": 5}`}

	newTestEvaluator(p).Evaluate(context.Background(),
		model.GenerationRequest{Subject: "chemistry", Chapter: "acids", EasyCount: 2, MediumCount: 1}, sampleItems())

	for _, want := range []string{"chemistry", "acids", "2 easy, 1 medium, 0 hard", "What is H2O?"} {
		if !strings.Contains(p.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
