package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pulsepipe/ingest/internal/tracking/model"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9()\-.\s]{7,20}$`)
)

// plausibleRange bounds a handful of well-known clinical fields; values
// outside the bound are a format/range violation, not yet an outlier.
var plausibleRange = map[string][2]float64{
	"age":                {0, 150},
	"heart_rate":         {20, 250},
	"temperature_celsius": {30, 45},
	"weight_kg":          {0, 500},
}

// scoreConsistency runs format, range, cross-field, and temporal-order
// checks and derives a score from the violation rate over all checks
// actually performed, per spec.md §4.9. Format violations are tagged
// format_mismatch so scoreValidity can derive from them directly.
func scoreConsistency(record map[string]any) (score float64, issues []model.QualityIssue) {
	checks := 0
	violations := 0

	for field, raw := range record {
		s, ok := raw.(string)
		if !ok || s == "" {
			continue
		}
		lower := strings.ToLower(field)
		switch {
		case strings.Contains(lower, "email"):
			checks++
			if !emailPattern.MatchString(s) {
				violations++
				issues = append(issues, formatIssue(field, "email", s))
			}
		case strings.Contains(lower, "phone"):
			checks++
			if !phonePattern.MatchString(s) {
				violations++
				issues = append(issues, formatIssue(field, "phone", s))
			}
		case strings.Contains(lower, "date"):
			checks++
			if _, err := parseDate(s); err != nil {
				violations++
				issues = append(issues, formatIssue(field, "date", s))
			}
		}
	}

	for field, bounds := range plausibleRange {
		raw, ok := record[field]
		if !ok {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		checks++
		if v < bounds[0] || v > bounds[1] {
			violations++
			issues = append(issues, model.QualityIssue{
				Dimension:   "consistency",
				Severity:    model.QualitySeverityMedium,
				FieldName:   field,
				IssueType:   "range_violation",
				Description: fmt.Sprintf("%s value %v outside plausible range [%v, %v]", field, v, bounds[0], bounds[1]),
			})
		}
	}

	if ok, violated := checkAgeAgainstBirthDate(record); ok {
		checks++
		if violated {
			violations++
			issues = append(issues, model.QualityIssue{
				Dimension:   "consistency",
				Severity:    model.QualitySeverityMedium,
				FieldName:   "age",
				IssueType:   "cross_field_mismatch",
				Description: "age does not match birth_date within one year",
			})
		}
	}

	if ok, violated := checkTemporalOrder(record); ok {
		checks++
		if violated {
			violations++
			issues = append(issues, model.QualityIssue{
				Dimension:   "consistency",
				Severity:    model.QualitySeverityMedium,
				FieldName:   "birth_date",
				IssueType:   "temporal_order_violation",
				Description: "a *_date field precedes birth_date",
			})
		}
	}

	if checks == 0 {
		return 1.0, issues
	}
	return 1.0 - float64(violations)/float64(checks), issues
}

func formatIssue(field, kind, value string) model.QualityIssue {
	return model.QualityIssue{
		Dimension:   "consistency",
		Severity:    model.QualitySeverityMedium,
		FieldName:   field,
		IssueType:   "format_mismatch",
		Description: fmt.Sprintf("%s field %q does not match expected %s format", field, value, kind),
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func checkAgeAgainstBirthDate(record map[string]any) (applicable, violated bool) {
	ageRaw, hasAge := record["age"]
	birthRaw, hasBirth := record["birth_date"]
	if !hasAge || !hasBirth {
		return false, false
	}
	age, ok := toFloat(ageRaw)
	if !ok {
		return false, false
	}
	birthStr, ok := birthRaw.(string)
	if !ok {
		return false, false
	}
	birth, err := parseDate(birthStr)
	if err != nil {
		return false, false
	}
	computedAge := float64(time.Now().UTC().Year() - birth.Year())
	diff := computedAge - age
	if diff < 0 {
		diff = -diff
	}
	return true, diff > 1
}

func checkTemporalOrder(record map[string]any) (applicable, violated bool) {
	birthRaw, ok := record["birth_date"].(string)
	if !ok {
		return false, false
	}
	birth, err := parseDate(birthRaw)
	if err != nil {
		return false, false
	}
	found := false
	for field, raw := range record {
		if field == "birth_date" || !strings.HasSuffix(field, "_date") {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		t, err := parseDate(s)
		if err != nil {
			continue
		}
		found = true
		if t.Before(birth) {
			return true, true
		}
	}
	return found, false
}
