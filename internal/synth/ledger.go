package synth

import (
	"github.com/itemforge/itemforge/internal/fingerprint"
	"github.com/itemforge/itemforge/internal/model"
)

// Ledger is the request-scoped dedup state: fingerprints and normalized stems
// already accepted, inspiration ids already used, and the accepted item texts
// in causal order (the avoid-list). One Ledger per generation run; never
// shared across requests.
type Ledger struct {
	fingerprints map[string]struct{}
	stems        map[string]struct{}
	inspirations map[string]struct{}
	accepted     []string
	duplicates   int
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		fingerprints: make(map[string]struct{}),
		stems:        make(map[string]struct{}),
		inspirations: make(map[string]struct{}),
	}
}

// SeenFingerprint reports whether fp was already accepted
func (l *Ledger) SeenFingerprint(fp string) bool {
	_, ok := l.fingerprints[fp]
	return ok
}

// SeenStem reports whether the normalized stem was already accepted.
// The looser guard: same question text with reshuffled options still counts
// as a duplicate.
func (l *Ledger) SeenStem(stem string) bool {
	_, ok := l.stems[fingerprint.Normalize(stem)]
	return ok
}

// Accept registers an accepted item's fingerprint, stem, and text
func (l *Ledger) Accept(item model.GeneratedItem) {
	l.fingerprints[item.Fingerprint] = struct{}{}
	l.stems[fingerprint.Normalize(item.Text)] = struct{}{}
	l.accepted = append(l.accepted, item.Text)
}

// CountDuplicate tallies a rejected duplicate for aggregate reporting
func (l *Ledger) CountDuplicate() {
	l.duplicates++
}

// Duplicates returns the number of duplicate rejections so far
func (l *Ledger) Duplicates() int {
	return l.duplicates
}

// MarkInspirationsUsed records inspiration ids consumed by a successful slot
func (l *Ledger) MarkInspirationsUsed(ids []string) {
	for _, id := range ids {
		l.inspirations[id] = struct{}{}
	}
}

// InspirationUsed reports whether an inspiration id was consumed already
func (l *Ledger) InspirationUsed(id string) bool {
	_, ok := l.inspirations[id]
	return ok
}

// AvoidList returns the tail of the accepted item texts, newest last,
// truncated to cap entries to bound prompt size
func (l *Ledger) AvoidList(cap int) []string {
	if cap <= 0 || len(l.accepted) <= cap {
		return l.accepted
	}
	return l.accepted[len(l.accepted)-cap:]
}
