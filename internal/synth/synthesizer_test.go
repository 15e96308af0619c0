package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
)

// scriptedProvider returns canned responses in order, repeating the last one
// once the script runs out.
type scriptedProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.prompts = append(p.prompts, req.Prompt)
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return &llm.CompletionResponse{Text: p.responses[i], Model: req.Model}, nil
}

func (p *scriptedProvider) IsAvailable(context.Context) bool { return true }

func newTestSynthesizer(provider llm.Provider) *Synthesizer {
	chain := llm.NewChain(provider, []string{"test-model"}, 0, 1000)
	return New(chain, model.EngineConfig{SynthAttempts: 3, InspirationCap: 6, AvoidListCap: 12}, nil)
}

func testRequest() model.GenerationRequest {
	return model.GenerationRequest{Subject: "chemistry", Chapter: "acids", EasyCount: 2}
}

const validItemJSON = `{"question": "Which acid is found in vinegar?",
"options": ["Acetic acid", "Citric acid", "Sulfuric acid", "Nitric acid"],
"correct_index": 0, "topics": ["acids"], "tags": ["everyday"]}`

func TestSynthesizeValidItem(t *testing.T) {
	provider := &scriptedProvider{responses: []string{validItemJSON}}
	s := newTestSynthesizer(provider)
	ledger := NewLedger()

	rc := model.RetrievalContext{ID: "easy|topic|acids", Tier: model.TierEasy, Topic: "acids"}
	inspirations := []model.InspirationRecord{
		{ID: "q1", Text: "What is the pH of pure water?"},
		{ID: "q2", Text: "Name a strong base."},
	}

	item, err := s.Synthesize(context.Background(), testRequest(), model.TierEasy, rc, inspirations, ledger)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if item == nil {
		t.Fatal("expected an item")
	}
	if item.Text != "Which acid is found in vinegar?" {
		t.Errorf("unexpected text %q", item.Text)
	}
	if item.CorrectIndex != 0 || len(item.Options) != 4 {
		t.Errorf("options/correct mangled: %v / %d", item.Options, item.CorrectIndex)
	}
	if item.Difficulty != model.TierEasy {
		t.Errorf("difficulty = %q", item.Difficulty)
	}
	if item.Fingerprint == "" {
		t.Error("fingerprint not set")
	}
	if item.Provenance.ContextID != rc.ID {
		t.Errorf("provenance context = %q", item.Provenance.ContextID)
	}
	if len(item.Provenance.InspirationIDs) != 2 {
		t.Errorf("provenance inspirations = %v", item.Provenance.InspirationIDs)
	}

	if !ledger.SeenFingerprint(item.Fingerprint) {
		t.Error("accepted item not registered in ledger")
	}
	if !ledger.InspirationUsed("q1") {
		t.Error("inspirations not marked used")
	}
}

func TestSynthesizeDuplicateExhaustsAttempts(t *testing.T) {
	provider := &scriptedProvider{responses: []string{validItemJSON}}
	s := newTestSynthesizer(provider)
	ledger := NewLedger()

	req := testRequest()
	rc := model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy}

	first, err := s.Synthesize(context.Background(), req, model.TierEasy, rc, nil, ledger)
	if err != nil || first == nil {
		t.Fatalf("first synthesis failed: %v %v", first, err)
	}

	// Every subsequent response is identical, so the slot must go unfilled.
	second, err := s.Synthesize(context.Background(), req, model.TierEasy, rc, nil, ledger)
	if err != nil {
		t.Fatalf("duplicate exhaustion should not error: %v", err)
	}
	if second != nil {
		t.Fatal("duplicate item was accepted")
	}
	if ledger.Duplicates() != 3 {
		t.Errorf("duplicates counted = %d, want 3", ledger.Duplicates())
	}

	// Retry prompts should carry the rejection reason.
	last := provider.prompts[len(provider.prompts)-1]
	if !strings.Contains(last, "previous attempt was rejected") {
		t.Error("retry prompt missing rejection feedback")
	}
}

func TestSynthesizeMalformedThenValid(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I cannot answer that.",
		"```json\n" + validItemJSON + "\n```",
	}}
	s := newTestSynthesizer(provider)

	item, err := s.Synthesize(context.Background(), testRequest(), model.TierEasy,
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy}, nil, NewLedger())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if item == nil {
		t.Fatal("expected recovery on second attempt")
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2", provider.calls)
	}
}

func TestSynthesizeRejectsInvalidCandidate(t *testing.T) {
	// Three options only: fails validation every attempt.
	provider := &scriptedProvider{responses: []string{
		`{"question": "Pick one", "options": ["a", "b", "c"], "correct_index": 0}`,
	}}
	s := newTestSynthesizer(provider)

	item, err := s.Synthesize(context.Background(), testRequest(), model.TierEasy,
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy}, nil, NewLedger())
	if err != nil {
		t.Fatalf("validation failure should not error: %v", err)
	}
	if item != nil {
		t.Fatal("invalid candidate was accepted")
	}
	if provider.calls != 3 {
		t.Errorf("calls = %d, want full attempt budget", provider.calls)
	}
}

func TestSynthesizeUpstreamFailure(t *testing.T) {
	s := newTestSynthesizer(&failingProvider{})

	_, err := s.Synthesize(context.Background(), testRequest(), model.TierEasy,
		model.RetrievalContext{ID: "easy|broad", Tier: model.TierEasy}, nil, NewLedger())
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestPickInspirationsPrefersFresh(t *testing.T) {
	s := newTestSynthesizer(&scriptedProvider{responses: []string{validItemJSON}})
	ledger := NewLedger()
	ledger.MarkInspirationsUsed([]string{"used1", "used2"})

	records := []model.InspirationRecord{
		{ID: "used1", Text: "a"},
		{ID: "fresh1", Text: "b"},
		{ID: "used2", Text: "c"},
		{ID: "fresh2", Text: "d"},
	}

	picked := s.pickInspirations(records, ledger)
	if len(picked) != 4 {
		t.Fatalf("picked %d, want 4", len(picked))
	}
	if picked[0].ID != "fresh1" || picked[1].ID != "fresh2" {
		t.Errorf("fresh records should lead: %v", picked)
	}
}

func TestPickInspirationsFallsBackToUsed(t *testing.T) {
	s := newTestSynthesizer(&scriptedProvider{responses: []string{validItemJSON}})
	ledger := NewLedger()
	ledger.MarkInspirationsUsed([]string{"u1", "u2"})

	records := []model.InspirationRecord{{ID: "u1", Text: "a"}, {ID: "u2", Text: "b"}}
	picked := s.pickInspirations(records, ledger)
	if len(picked) != 2 {
		t.Errorf("should reuse exhausted inspirations, got %d", len(picked))
	}
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("connection refused")
}
func (failingProvider) IsAvailable(context.Context) bool { return false }
