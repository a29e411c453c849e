package classify_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/classify"
)

func TestClassifyExactTypeMatch(t *testing.T) {
	var syntaxErr *json.SyntaxError
	err := json.Unmarshal([]byte(`{bad json`), &struct{}{})
	require.Error(t, err)
	require.ErrorAs(t, err, &syntaxErr)

	ce := classify.Classify(err, "ingestion", "rec-1", nil)
	assert.Equal(t, classify.CategoryParse, ce.Analysis.Category)
	assert.Equal(t, classify.PatternJSONParse, ce.Analysis.Pattern)
	assert.Greater(t, ce.Analysis.ConfidenceScore, 0.8)
}

func TestClassifyMessagePatternMatch(t *testing.T) {
	err := errors.New("missing required field: patient_id")
	ce := classify.Classify(err, "chunking", "", nil)
	assert.Equal(t, classify.CategoryValidation, ce.Analysis.Category)
	assert.Equal(t, classify.PatternMissingField, ce.Analysis.Pattern)
	assert.Equal(t, classify.SeverityMedium, ce.Analysis.Severity)
	assert.True(t, ce.Analysis.IsRecoverable)
}

func TestClassifyFallback(t *testing.T) {
	err := errors.New("something entirely unexpected happened")
	ce := classify.Classify(err, "embedding", "", nil)
	assert.Equal(t, classify.CategorySystem, ce.Analysis.Category)
	assert.Equal(t, classify.PatternUnknown, ce.Analysis.Pattern)
}

func TestSeverityTableCriticalCases(t *testing.T) {
	ce := classify.Classify(errors.New("out of memory: cannot allocate memory"), "embedding", "", nil)
	assert.Equal(t, classify.SeverityCritical, ce.Analysis.Severity)
	assert.False(t, ce.Analysis.IsRecoverable)

	ce = classify.Classify(errors.New("no space left on device"), "vectorstore", "", nil)
	assert.Equal(t, classify.SeverityCritical, ce.Analysis.Severity)
}

func TestConfidenceScoreBounded(t *testing.T) {
	for _, err := range []error{
		errors.New("connection refused by remote host"),
		errors.New("request timed out"),
		errors.New("totally novel failure"),
	} {
		ce := classify.Classify(err, "ingestion", "", nil)
		assert.GreaterOrEqual(t, ce.Analysis.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, ce.Analysis.ConfidenceScore, 1.0)
	}
}

func TestAggregateStatistics(t *testing.T) {
	errs := []classify.ClassifiedError{
		classify.Classify(errors.New("missing required field: x"), "ingestion", "1", nil),
		classify.Classify(errors.New("missing required field: y"), "ingestion", "2", nil),
		classify.Classify(errors.New("connection refused"), "embedding", "3", nil),
	}
	stats := classify.Aggregate(errs)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByCategory[classify.CategoryValidation])
	assert.Equal(t, 1, stats.ByCategory[classify.CategoryNetwork])
	assert.Equal(t, "ingestion", stats.MostCommonStage)
	assert.Greater(t, stats.AverageConfidence, 0.0)
}

func TestAggregateEmpty(t *testing.T) {
	stats := classify.Aggregate(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.AverageConfidence)
}
