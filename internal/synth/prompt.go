package synth

import (
	"fmt"
	"strings"

	"github.com/itemforge/itemforge/internal/model"
)

const systemPrompt = "You are an exam item writer. You produce original multiple-choice questions. " +
	"Respond ONLY with a JSON object: " +
	`{"question": "...", "options": ["...", "...", "...", "..."], "correct_index": 0, "topics": [], "tags": []}. ` +
	"4 or 5 options, exactly one correct, correct_index zero-based."

// buildPrompt constructs the generation prompt for one slot attempt.
// rejection carries the previous attempt's failure reason; empty on the
// first attempt.
func buildPrompt(req model.GenerationRequest, tier model.Tier, rc model.RetrievalContext,
	inspirations []model.InspirationRecord, avoid []string, rejection string) string {

	var b strings.Builder

	fmt.Fprintf(&b, "Write ONE new %s-difficulty multiple-choice exam question.\n\n", tier)
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	if req.OverallDifficulty != "" {
		fmt.Fprintf(&b, "Overall paper difficulty skew: %s\n", req.OverallDifficulty)
	}
	if req.Chapter != "" {
		fmt.Fprintf(&b, "Chapter: %s\n", req.Chapter)
	}
	constraints := []struct{ label, value string }{
		{"Topic", rc.Topic},
		{"Second topic", rc.Topic2},
		{"Tag", rc.Tag},
		{"Focus", rc.Keyword},
	}
	for _, c := range constraints {
		if c.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", c.label, c.value)
		}
	}
	if len(req.Topics) > 0 {
		fmt.Fprintf(&b, "Requested topics: %s\n", strings.Join(req.Topics, ", "))
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "Requested tags: %s\n", strings.Join(req.Tags, ", "))
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Description)
	}

	if len(inspirations) > 0 {
		b.WriteString("\nInspiration questions from the existing bank. Use them for style and scope ONLY. Do not copy or trivially rephrase any of them:\n")
		for i, insp := range inspirations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, insp.Text)
		}
	}

	if len(avoid) > 0 {
		b.WriteString("\nThe following questions already exist in this paper. Your question must differ from ALL of them in substance, not just wording:\n")
		for _, text := range avoid {
			fmt.Fprintf(&b, "- %s\n", text)
		}
	}

	if rejection != "" {
		fmt.Fprintf(&b, "\nYour previous attempt was rejected: %s\nProduce a substantially different question this time.\n", rejection)
	}

	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}
