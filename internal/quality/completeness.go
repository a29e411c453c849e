package quality

import (
	"fmt"

	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// scoreCompleteness weights required-field coverage at 0.8 and optional-
// field coverage at 0.2, per spec.md §4.9. A field counts as present only
// if it exists and isn't a recognized placeholder value.
func scoreCompleteness(schema FieldSchema, record map[string]any) (score float64, issues []model.QualityIssue, missing []string) {
	requiredCoverage := 1.0
	if len(schema.Required) > 0 {
		present := 0
		for _, f := range schema.Required {
			v, ok := record[f]
			if ok && isPresent(v) {
				present++
				continue
			}
			missing = append(missing, f)
			issues = append(issues, model.QualityIssue{
				Dimension:   "completeness",
				Severity:    model.QualitySeverityHigh,
				FieldName:   f,
				IssueType:   "missing_required_field",
				Description: fmt.Sprintf("required field %q is missing or empty", f),
			})
		}
		requiredCoverage = float64(present) / float64(len(schema.Required))
	}

	optionalCoverage := 1.0
	if len(schema.Optional) > 0 {
		present := 0
		for _, f := range schema.Optional {
			v, ok := record[f]
			if ok && isPresent(v) {
				present++
				continue
			}
			issues = append(issues, model.QualityIssue{
				Dimension:   "completeness",
				Severity:    model.QualitySeverityLow,
				FieldName:   f,
				IssueType:   "missing_optional_field",
				Description: fmt.Sprintf("optional field %q is missing or empty", f),
			})
		}
		optionalCoverage = float64(present) / float64(len(schema.Optional))
	}

	return requiredCoverage*0.8 + optionalCoverage*0.2, issues, missing
}
