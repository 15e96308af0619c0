package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/itemforge/itemforge/internal/model"
)

// scriptedProvider returns canned responses per model identifier
type scriptedProvider struct {
	name      string
	responses map[string]string // model -> text ("" means empty response)
	errs      map[string]error
	calls     []string
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.calls = append(p.calls, req.Model)
	if err, ok := p.errs[req.Model]; ok {
		return nil, err
	}
	return &CompletionResponse{Text: p.responses[req.Model], Model: req.Model}, nil
}

func TestChain_FirstSuccessWins(t *testing.T) {
	p := &scriptedProvider{
		name:      "scripted",
		responses: map[string]string{"primary": "answer from primary", "backup": "answer from backup"},
	}
	chain := NewChain(p, []string{"primary", "backup"}, 0, 0)

	text, err := chain.Complete(context.Background(), "sys", "prompt", 0.7)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "answer from primary" {
		t.Errorf("expected primary answer, got %q", text)
	}
	if len(p.calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(p.calls))
	}
}

func TestChain_FallsBackOnErrorAndEmpty(t *testing.T) {
	p := &scriptedProvider{
		name:      "scripted",
		responses: map[string]string{"second": "", "third": "from third"},
		errs:      map[string]error{"first": errors.New("boom")},
	}
	chain := NewChain(p, []string{"first", "second", "third"}, 0, 0)

	text, err := chain.Complete(context.Background(), "sys", "prompt", 0.7)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "from third" {
		t.Errorf("expected third answer, got %q", text)
	}
	if len(p.calls) != 3 {
		t.Errorf("expected 3 calls, got %d", len(p.calls))
	}
}

func TestChain_Exhausted(t *testing.T) {
	p := &scriptedProvider{
		name: "scripted",
		errs: map[string]error{"a": errors.New("down"), "b": errors.New("down too")},
	}
	chain := NewChain(p, []string{"a", "b"}, 0, 0)

	_, err := chain.Complete(context.Background(), "sys", "prompt", 0.7)
	if err == nil {
		t.Fatal("expected error when all candidates fail")
	}
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestChain_NoCandidates(t *testing.T) {
	chain := NewChainOf(nil, 0, 0)

	_, err := chain.Complete(context.Background(), "sys", "prompt", 0.7)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
