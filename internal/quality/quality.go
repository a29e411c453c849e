// Package quality implements the six-dimension quality scoring engine
// (C9): completeness, consistency, validity, accuracy, outlier, and
// data-usage sub-scorers combined into one weighted overall score per
// record, plus batch sampling and aggregate reporting. Grounded on
// tests/test_quality_scoring_engine.py's weight and sampling behavior.
package quality

import (
	"fmt"
	"math"

	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// Weights are the per-dimension contributions to the overall score; they
// must sum to 1 (within 1e-9).
type Weights struct {
	Completeness float64
	Consistency  float64
	Validity     float64
	Accuracy     float64
	Outlier      float64
	DataUsage    float64
}

// DefaultWeights matches spec.md §4.9's default bundle.
func DefaultWeights() Weights {
	return Weights{
		Completeness: 0.25,
		Consistency:  0.20,
		Validity:     0.15,
		Accuracy:     0.15,
		Outlier:      0.15,
		DataUsage:    0.10,
	}
}

func (w Weights) sum() float64 {
	return w.Completeness + w.Consistency + w.Validity + w.Accuracy + w.Outlier + w.DataUsage
}

// FieldSchema describes which fields a record type must/may carry, for
// the completeness sub-scorer.
type FieldSchema struct {
	Required []string
	Optional []string
}

// Result is the full per-record scoring output.
type Result struct {
	Completeness  float64
	Consistency   float64
	Validity      float64
	Accuracy      float64
	Outlier       float64
	DataUsage     float64
	Overall       float64
	MissingFields []string
	InvalidFields []string
	OutlierFields []string
	UnusedFields  []string
	Issues        []model.QualityIssue
	// Sampled reports whether this record was actually scored rather than
	// given a placeholder result because batch sampling excluded it.
	Sampled bool
}

// Scorer computes Results for individual records and maintains the
// running field distributions the outlier sub-scorer needs.
type Scorer struct {
	weights      Weights
	schemas      map[string]FieldSchema
	distributions *distributionTracker
	usage        *UsageTracker
}

// New constructs a Scorer with the default weights. Use WithWeights to
// override them (re-validated to sum to 1).
func New(schemas map[string]FieldSchema) *Scorer {
	return &Scorer{
		weights:       DefaultWeights(),
		schemas:       schemas,
		distributions: newDistributionTracker(),
	}
}

// WithWeights overrides the default weights; returns an error if they
// don't sum to 1 within 1e-9, matching test_custom_weights.
func (s *Scorer) WithWeights(w Weights) error {
	if math.Abs(w.sum()-1.0) > 1e-9 {
		return fmt.Errorf("quality: weights must sum to 1, got %.12f", w.sum())
	}
	s.weights = w
	return nil
}

// WithUsageTracker attaches an optional UsageTracker for the data-usage
// sub-scorer.
func (s *Scorer) WithUsageTracker(u *UsageTracker) {
	s.usage = u
}

// Score computes all six dimensions for one record of the given type.
func (s *Scorer) Score(recordType string, record map[string]any) Result {
	schema := s.schemas[recordType]

	compScore, compIssues, missing := scoreCompleteness(schema, record)
	consScore, consIssues := scoreConsistency(record)
	validScore, invalidFields := scoreValidity(consIssues)
	accScore := scoreAccuracy(record)
	outScore, outlierFields := s.distributions.scoreOutlier(record)
	usageScore, unusedFields := scoreDataUsage(record, s.usage)

	result := Result{
		Completeness:  compScore,
		Consistency:   consScore,
		Validity:      validScore,
		Accuracy:      accScore,
		Outlier:       outScore,
		DataUsage:     usageScore,
		MissingFields: missing,
		InvalidFields: invalidFields,
		OutlierFields: outlierFields,
		UnusedFields:  unusedFields,
	}
	result.Issues = append(result.Issues, compIssues...)
	result.Issues = append(result.Issues, consIssues...)

	result.Overall = s.weights.Completeness*compScore +
		s.weights.Consistency*consScore +
		s.weights.Validity*validScore +
		s.weights.Accuracy*accScore +
		s.weights.Outlier*outScore +
		s.weights.DataUsage*usageScore
	result.Sampled = true

	return result
}

// ToMetric adapts a Result into the persisted model.QualityMetric shape.
func (r Result) ToMetric(runID, recordID, recordType string) model.QualityMetric {
	return model.QualityMetric{
		PipelineRunID: runID,
		RecordID:      recordID,
		RecordType:    recordType,
		Completeness:  r.Completeness,
		Consistency:   r.Consistency,
		Validity:      r.Validity,
		Accuracy:      r.Accuracy,
		Outlier:       r.Outlier,
		DataUsage:     r.DataUsage,
		OverallScore:  r.Overall,
		MissingFields: r.MissingFields,
		InvalidFields: r.InvalidFields,
		OutlierFields: r.OutlierFields,
		UnusedFields:  r.UnusedFields,
		Issues:        r.Issues,
		Sampled:       r.Sampled,
	}
}

// placeholderResult is returned for records a batch run excludes via
// sampling; every dimension defaults to zero and Sampled is false so
// callers can distinguish "not measured" from "scored poorly".
func placeholderResult() Result {
	return Result{}
}

var placeholderValues = map[string]bool{
	"null": true, "none": true, "n/a": true, "na": true, "unknown": true, "": true,
}

func isPresent(v any) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	if !ok {
		return true
	}
	return !placeholderValues[normalizeForPlaceholderCheck(s)]
}

func normalizeForPlaceholderCheck(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}
