package quality

import "github.com/pulsepipe/ingest/internal/tracking/model"

// scoreValidity derives directly from consistency's format_mismatch
// findings: each one costs 0.1, floored at 0, per spec.md §4.9.
func scoreValidity(consistencyIssues []model.QualityIssue) (float64, []string) {
	count := 0
	var fields []string
	for _, issue := range consistencyIssues {
		if issue.IssueType == "format_mismatch" {
			count++
			fields = append(fields, issue.FieldName)
		}
	}
	score := 1.0 - 0.1*float64(count)
	if score < 0 {
		score = 0
	}
	return score, fields
}
