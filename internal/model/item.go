package model

import (
	"fmt"
	"strings"
)

// RetrievalContext bundles tier + topic/tag/keyword constraints defining one
// similarity search. Contexts are cached by ID within a single request.
type RetrievalContext struct {
	ID      string `json:"id"`
	Tier    Tier   `json:"tier"`
	Topic   string `json:"topic,omitempty"`
	Topic2  string `json:"topic2,omitempty"` // second topic for adjacent-pair contexts
	Tag     string `json:"tag,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Notes   string `json:"notes,omitempty"` // free-text steering appended to the embedding query
}

// ContextID builds a deterministic identifier from the context constraints.
// Equal constraints always produce the same ID, which is what makes the
// per-request retrieval cache effective.
func ContextID(tier Tier, parts ...string) string {
	fields := []string{string(tier)}
	for _, p := range parts {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, "|")
}

// InspirationRecord is a corpus item surfaced by retrieval to guide synthesis.
// Read-only; never mutated.
type InspirationRecord struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Chapter      string   `json:"chapter,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Difficulty   Tier     `json:"difficulty,omitempty"`
	Score        float64  `json:"score"` // similarity score from the search service
}

// Usable reports whether the record carries enough body to inspire synthesis
func (r InspirationRecord) Usable() bool {
	return strings.TrimSpace(r.Text) != "" && len(r.Options) > 0
}

// CandidateItem is raw synthesizer output before validation. May be malformed.
type CandidateItem struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Topics       []string `json:"topics,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// MinOptions is the smallest option set a valid item may carry
const MinOptions = 4

// Validate checks the structural requirements for promotion to a GeneratedItem
func (c CandidateItem) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: empty question text", ErrValidation)
	}
	if len(c.Options) < MinOptions {
		return fmt.Errorf("%w: %d options, need at least %d", ErrValidation, len(c.Options), MinOptions)
	}
	if c.CorrectIndex < 0 || c.CorrectIndex >= len(c.Options) {
		return fmt.Errorf("%w: correct_index %d out of range [0,%d)", ErrValidation, c.CorrectIndex, len(c.Options))
	}
	return nil
}

// Provenance records where a generated item came from
type Provenance struct {
	ContextID      string   `json:"context_id"`
	InspirationIDs []string `json:"inspiration_ids,omitempty"`
}

// GeneratedItem is a validated, fingerprinted, accepted exam item.
// Immutable once accepted into the result set.
type GeneratedItem struct {
	Text         string     `json:"text"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correct_index"`
	Subject      string     `json:"subject"`
	Chapter      string     `json:"chapter,omitempty"`
	Topics       []string   `json:"topics,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Difficulty   Tier       `json:"difficulty"`
	Fingerprint  string     `json:"fingerprint"`
	Provenance   Provenance `json:"provenance"`
}
