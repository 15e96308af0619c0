package model

import "fmt"

// Tier is one of the three declared difficulty buckets
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Tiers lists all tiers in scheduling priority order (easy first)
var Tiers = []Tier{TierEasy, TierMedium, TierHard}

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	return t == TierEasy || t == TierMedium || t == TierHard
}

// MaxRounds bounds for a single generation run
const (
	MinRounds     = 1
	MaxRoundsCap  = 10
	DefaultRounds = 3
)

// GenerationRequest describes one item-generation run.
// Immutable for the lifetime of the run.
type GenerationRequest struct {
	Subject           string   `json:"subject"`
	Chapter           string   `json:"chapter,omitempty"`
	OverallDifficulty Tier     `json:"overall_difficulty,omitempty"`
	EasyCount         int      `json:"easy_count"`
	MediumCount       int      `json:"medium_count"`
	HardCount         int      `json:"hard_count"`
	Tags              []string `json:"tags,omitempty"`
	Topics            []string `json:"topics,omitempty"`
	Description       string   `json:"description,omitempty"`
	MaxRounds         int      `json:"max_rounds,omitempty"`
}

// Validate checks the request preconditions described in the input contract
func (r GenerationRequest) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrConfiguration)
	}
	if r.EasyCount < 0 || r.MediumCount < 0 || r.HardCount < 0 {
		return fmt.Errorf("%w: tier counts must be non-negative", ErrConfiguration)
	}
	if r.EasyCount+r.MediumCount+r.HardCount == 0 {
		return fmt.Errorf("%w: at least one item must be requested", ErrConfiguration)
	}
	if r.OverallDifficulty != "" && !r.OverallDifficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrConfiguration, r.OverallDifficulty)
	}
	return nil
}

// Requested returns the requested count for a tier
func (r GenerationRequest) Requested(t Tier) int {
	switch t {
	case TierEasy:
		return r.EasyCount
	case TierMedium:
		return r.MediumCount
	case TierHard:
		return r.HardCount
	}
	return 0
}

// TotalRequested returns the sum of all tier counts
func (r GenerationRequest) TotalRequested() int {
	return r.EasyCount + r.MediumCount + r.HardCount
}

// Rounds returns MaxRounds clamped to [MinRounds, MaxRoundsCap],
// falling back to DefaultRounds when unset
func (r GenerationRequest) Rounds() int {
	n := r.MaxRounds
	if n == 0 {
		n = DefaultRounds
	}
	if n < MinRounds {
		n = MinRounds
	}
	if n > MaxRoundsCap {
		n = MaxRoundsCap
	}
	return n
}
