package quality

import (
	"strings"
	"sync"
)

// fieldImportance weights how much an unused field should cost the score;
// identifier and clinical fields matter more than free-text notes.
type fieldImportance int

const (
	importanceLow fieldImportance = iota
	importanceMedium
	importanceHigh
)

var knownFieldImportance = map[string]fieldImportance{
	"id":         importanceHigh,
	"patient_id": importanceHigh,
	"member_id":  importanceHigh,
	"name":       importanceMedium,
	"birth_date": importanceMedium,
	"notes":      importanceLow,
	"comments":   importanceLow,
}

func importanceOf(field string) fieldImportance {
	if w, ok := knownFieldImportance[field]; ok {
		return w
	}
	lower := strings.ToLower(field)
	if strings.HasPrefix(lower, "temp_") || strings.HasPrefix(lower, "debug_") {
		return importanceLow
	}
	return importanceMedium
}

func (w fieldImportance) penalty() float64 {
	switch w {
	case importanceHigh:
		return 0.15
	case importanceMedium:
		return 0.08
	default:
		return 0.03
	}
}

// UsageTracker records which fields a downstream stage (chunking,
// embedding, vector store) actually consumed, so scoreDataUsage can
// distinguish a genuinely unused field from one this process just hasn't
// reached yet. Without a tracker, only the temp_*/debug_* heuristic
// applies.
type UsageTracker struct {
	mu   sync.Mutex
	used map[string]bool
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{used: make(map[string]bool)}
}

func (u *UsageTracker) MarkUsed(field string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.used[field] = true
}

func (u *UsageTracker) isUsed(field string) (tracked, used bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u == nil || u.used == nil {
		return false, false
	}
	v, ok := u.used[field]
	return ok, v
}

// scoreDataUsage penalizes fields that are present but apparently unused,
// weighted by field importance, per spec.md §4.9. With no UsageTracker
// attached, only the temp_*/debug_* naming heuristic contributes.
func scoreDataUsage(record map[string]any, tracker *UsageTracker) (float64, []string) {
	var unused []string
	penalty := 0.0

	for field, raw := range record {
		if !isPresent(raw) {
			continue
		}
		lower := strings.ToLower(field)
		likelyUnused := strings.HasPrefix(lower, "temp_") || strings.HasPrefix(lower, "debug_")

		if tracker != nil {
			if tracked, used := tracker.isUsed(field); tracked {
				likelyUnused = !used
			}
		}
		if likelyUnused {
			unused = append(unused, field)
			penalty += importanceOf(field).penalty()
		}
	}

	score := 1.0 - penalty
	if score < 0 {
		score = 0
	}
	return score, unused
}
