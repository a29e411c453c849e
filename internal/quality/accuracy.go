package quality

// knownPlaceholderStrings flags test/dummy data slipping into a real feed,
// distinct from the presence-only placeholders completeness checks.
var knownPlaceholderStrings = map[string]bool{
	"0": true, "test": true, "dummy": true, "sample": true,
}

// scoreAccuracy penalizes 0.05 per field carrying an obvious test/dummy
// value, per spec.md §4.9.
func scoreAccuracy(record map[string]any) float64 {
	offenders := 0
	for _, raw := range record {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if knownPlaceholderStrings[normalizeForPlaceholderCheck(s)] {
			offenders++
		}
	}
	score := 1.0 - 0.05*float64(offenders)
	if score < 0 {
		score = 0
	}
	return score
}
