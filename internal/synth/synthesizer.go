// Package synth turns one retrieval context's inspiration set into a single
// validated, deduplicated exam item.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itemforge/itemforge/internal/fingerprint"
	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
	"github.com/itemforge/itemforge/internal/parse"
)

// Synthesizer generates candidate items via the completion chain and gates
// them through validation and the dedup ledger
type Synthesizer struct {
	chain          *llm.Chain
	maxAttempts    int
	inspirationCap int
	avoidCap       int
	log            *slog.Logger
}

// New creates a synthesizer
func New(chain *llm.Chain, cfg model.EngineConfig, log *slog.Logger) *Synthesizer {
	attempts := cfg.SynthAttempts
	if attempts <= 0 {
		attempts = 3
	}
	inspirationCap := cfg.InspirationCap
	if inspirationCap <= 0 {
		inspirationCap = 6
	}
	avoidCap := cfg.AvoidListCap
	if avoidCap <= 0 {
		avoidCap = 12
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		chain:          chain,
		maxAttempts:    attempts,
		inspirationCap: inspirationCap,
		avoidCap:       avoidCap,
		log:            log,
	}
}

// Synthesize attempts to fill one slot. A nil item with nil error means the
// slot could not be filled within the attempt budget; the caller moves on.
// Only upstream exhaustion is returned as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, req model.GenerationRequest, tier model.Tier,
	rc model.RetrievalContext, inspirations []model.InspirationRecord, ledger *Ledger) (*model.GeneratedItem, error) {

	picked := s.pickInspirations(inspirations, ledger)

	rejection := ""
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		prompt := buildPrompt(req, tier, rc, picked, ledger.AvoidList(s.avoidCap), rejection)

		raw, err := s.chain.Complete(ctx, systemPrompt, prompt, 0.8)
		if err != nil {
			return nil, err
		}

		item, vetErr := s.vet(raw, req, tier, rc, picked, ledger)
		if item != nil {
			ledger.Accept(*item)
			ledger.MarkInspirationsUsed(item.Provenance.InspirationIDs)
			return item, nil
		}

		if errors.Is(vetErr, model.ErrDuplicate) {
			ledger.CountDuplicate()
			rejection = "it duplicated a question already accepted in this paper"
		} else {
			rejection = vetErr.Error()
		}
		s.log.Debug("candidate rejected", "tier", tier, "attempt", attempt, "reason", vetErr)
	}

	return nil, nil
}

// vet parses, validates, and dedup-checks one raw response. Returns the
// accepted item, or nil with an error classifying the rejection.
func (s *Synthesizer) vet(raw string, req model.GenerationRequest, tier model.Tier,
	rc model.RetrievalContext, picked []model.InspirationRecord, ledger *Ledger) (*model.GeneratedItem, error) {

	var candidate model.CandidateItem
	if err := parse.JSONObject(raw, &candidate); err != nil {
		return nil, fmt.Errorf("%w: the response was not valid JSON: %v", model.ErrValidation, err)
	}

	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	fp := fingerprint.Fingerprint(req.Subject, candidate.Text, candidate.Options)
	if ledger.SeenFingerprint(fp) || ledger.SeenStem(candidate.Text) {
		return nil, model.ErrDuplicate
	}

	inspirationIDs := make([]string, 0, len(picked))
	for _, insp := range picked {
		inspirationIDs = append(inspirationIDs, insp.ID)
	}

	return &model.GeneratedItem{
		Text:         candidate.Text,
		Options:      candidate.Options,
		CorrectIndex: candidate.CorrectIndex,
		Subject:      req.Subject,
		Chapter:      req.Chapter,
		Topics:       coalesce(candidate.Topics, req.Topics),
		Tags:         coalesce(candidate.Tags, req.Tags),
		Difficulty:   tier,
		Fingerprint:  fp,
		Provenance: model.Provenance{
			ContextID:      rc.ID,
			InspirationIDs: inspirationIDs,
		},
	}, nil
}

// pickInspirations selects up to the cap, preferring records not yet used as
// inspiration in this request; falls back to reusing already-used ones when
// nothing fresh remains.
func (s *Synthesizer) pickInspirations(records []model.InspirationRecord, ledger *Ledger) []model.InspirationRecord {
	fresh := make([]model.InspirationRecord, 0, len(records))
	stale := make([]model.InspirationRecord, 0, len(records))
	for _, rec := range records {
		if ledger.InspirationUsed(rec.ID) {
			stale = append(stale, rec)
		} else {
			fresh = append(fresh, rec)
		}
	}

	picked := fresh
	if len(picked) == 0 {
		picked = stale
	} else if len(picked) < s.inspirationCap {
		picked = append(picked, stale...)
	}

	if len(picked) > s.inspirationCap {
		picked = picked[:s.inspirationCap]
	}
	return picked
}

func coalesce(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return fallback
}
