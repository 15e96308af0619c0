package engine

import (
	"github.com/itemforge/itemforge/internal/model"
)

type slotState int

const (
	slotPending slotState = iota
	slotAccepted
)

// slot tracks one requested item through the round loop. Slots are created
// up front in tier priority order and revisited every round until accepted
// or the round budget runs out.
type slot struct {
	tier  model.Tier
	state slotState
}

// newSlots expands the request's tier counts into an ordered slot list,
// easy first
func newSlots(req model.GenerationRequest) []*slot {
	slots := make([]*slot, 0, req.TotalRequested())
	for _, tier := range model.Tiers {
		for i := 0; i < req.Requested(tier); i++ {
			slots = append(slots, &slot{tier: tier})
		}
	}
	return slots
}

// remaining counts unfilled slots per tier
func remaining(slots []*slot) model.TierCounts {
	counts := make(model.TierCounts)
	for _, s := range slots {
		if s.state != slotAccepted {
			counts[s.tier]++
		}
	}
	return counts
}

// generatedCounts tallies accepted items per tier
func generatedCounts(items []model.GeneratedItem) model.TierCounts {
	counts := make(model.TierCounts)
	for _, item := range items {
		counts[item.Difficulty]++
	}
	return counts
}
