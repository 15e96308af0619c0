package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/itemforge/itemforge/internal/model"
)

// Candidate pairs a provider with one model identifier in the fallback order
type Candidate struct {
	Provider Provider
	Model    string
}

// Chain tries candidates in priority order until one returns a non-empty
// response. New providers slot in as candidates without touching callers.
type Chain struct {
	candidates []Candidate
	limiter    *rate.Limiter
	maxTokens  int
}

// NewChain builds a chain over one provider and its prioritized model list.
// rps throttles outbound calls; 0 disables throttling.
func NewChain(provider Provider, models []string, rps float64, maxTokens int) *Chain {
	if len(models) == 0 {
		models = []string{""} // provider default
	}
	candidates := make([]Candidate, 0, len(models))
	for _, m := range models {
		candidates = append(candidates, Candidate{Provider: provider, Model: m})
	}
	return NewChainOf(candidates, rps, maxTokens)
}

// NewChainOf builds a chain over an explicit candidate list
func NewChainOf(candidates []Candidate, rps float64, maxTokens int) *Chain {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Chain{
		candidates: candidates,
		limiter:    limiter,
		maxTokens:  maxTokens,
	}
}

// Complete runs the request down the candidate list, short-circuiting on the
// first non-empty response. An exhausted chain is an upstream error.
func (c *Chain) Complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	if len(c.candidates) == 0 {
		return "", fmt.Errorf("%w: no completion candidates configured", model.ErrConfiguration)
	}

	var errs []error
	for _, cand := range c.candidates {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("%w: %v", model.ErrUpstream, err)
			}
		}

		resp, err := cand.Provider.Complete(ctx, CompletionRequest{
			System:      system,
			Prompt:      prompt,
			Model:       cand.Model,
			Temperature: temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", cand.Provider.Name(), cand.Model, err))
			continue
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			return text, nil
		}
		errs = append(errs, fmt.Errorf("%s/%s: empty response", cand.Provider.Name(), cand.Model))
	}

	return "", fmt.Errorf("%w: all candidates failed: %v", model.ErrUpstream, errors.Join(errs...))
}
