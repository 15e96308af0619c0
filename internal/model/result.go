package model

// EvaluationReport is the Paper Evaluator's critique of an assembled set.
// The numeric scores are machine-read by the scheduler's stop condition; the
// free-form lists are opaque steering text for the next round's retrieval.
type EvaluationReport struct {
	OverallScore           int      `json:"overall_score"`
	CoverageScore          int      `json:"coverage_score"`
	DiversityScore         int      `json:"diversity_score"`
	DifficultyBalanceScore int      `json:"difficulty_balance_score"`
	Suggestions            []string `json:"suggestions,omitempty"`
	WeakAreas              []string `json:"weak_areas,omitempty"`
	MissingTopics          []string `json:"missing_topics,omitempty"`
}

// NeutralReport is the fallback when evaluator output cannot be parsed.
// Mid-range scores with empty feedback, so the scheduler never aborts on it.
func NeutralReport() EvaluationReport {
	return EvaluationReport{
		OverallScore:           5,
		CoverageScore:          5,
		DiversityScore:         5,
		DifficultyBalanceScore: 5,
	}
}

// TierCounts maps tiers to item counts
type TierCounts map[Tier]int

// Total sums all tier counts
func (c TierCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// GenerationMeta reports what actually happened during one run
type GenerationMeta struct {
	Requested        TierCounts        `json:"requested"`
	Generated        TierCounts        `json:"generated"`
	RoundsUsed       int               `json:"rounds_used"`
	ContextsConsumed int               `json:"contexts_consumed"`
	Strategy         string            `json:"strategy"`
	KeywordsUsed     []string          `json:"keywords_used,omitempty"`
	FinalEvaluation  *EvaluationReport `json:"final_evaluation,omitempty"`
}

// GenerationResult is the engine's complete output. Partial fulfillment
// (fewer items than requested) is a valid outcome, never an error.
type GenerationResult struct {
	Items []GeneratedItem `json:"items"`
	Meta  GenerationMeta  `json:"meta"`
}
