package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/quality"
)

func patientSchema() map[string]quality.FieldSchema {
	return map[string]quality.FieldSchema{
		"patient": {
			Required: []string{"patient_id", "name", "birth_date"},
			Optional: []string{"email", "phone"},
		},
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := quality.DefaultWeights()
	s := quality.New(patientSchema())
	assert.NoError(t, s.WithWeights(w))
}

func TestCustomWeightsMustSumToOne(t *testing.T) {
	s := quality.New(patientSchema())
	bad := quality.Weights{Completeness: 0.5, Consistency: 0.5, Validity: 0.5}
	assert.Error(t, s.WithWeights(bad))
}

func TestCompletenessPenalizesMissingRequiredFields(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
	})
	assert.Less(t, result.Completeness, 1.0)
	assert.Contains(t, result.MissingFields, "birth_date")
}

func TestCompletenessTreatsPlaceholderAsAbsent(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "n/a",
		"birth_date": "1990-01-01",
	})
	assert.Contains(t, result.MissingFields, "name")
}

func TestConsistencyFlagsFormatMismatch(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
		"email":      "not-an-email",
	})
	assert.Less(t, result.Consistency, 1.0)
	assert.Contains(t, result.InvalidFields, "email")
}

func TestValidityDerivesFromFormatMismatchCount(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
		"email":      "garbage",
		"phone":      "garbage",
	})
	assert.InDelta(t, 0.8, result.Validity, 1e-9)
}

func TestAccuracyPenalizesPlaceholderValues(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "test",
		"birth_date": "1990-01-01",
	})
	assert.Less(t, result.Accuracy, 1.0)
}

func TestOutlierFlagsDomainImplausibleValue(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
		"age":        999.0,
	})
	assert.Contains(t, result.OutlierFields, "age")
	assert.InDelta(t, 0.8, result.Outlier, 1e-9)
}

func TestDataUsageFlagsTempAndDebugFields(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
		"temp_calc":  "x",
	})
	assert.Contains(t, result.UnusedFields, "temp_calc")
}

func TestDataUsageRespectsUsageTracker(t *testing.T) {
	s := quality.New(patientSchema())
	tracker := quality.NewUsageTracker()
	tracker.MarkUsed("notes")
	s.WithUsageTracker(tracker)

	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
		"notes":      "some clinical note",
	})
	assert.NotContains(t, result.UnusedFields, "notes")
}

func TestOverallScoreIsWeightedSum(t *testing.T) {
	s := quality.New(patientSchema())
	result := s.Score("patient", map[string]any{
		"patient_id": "p-1",
		"name":       "Jane Doe",
		"birth_date": "1990-01-01",
	})
	w := quality.DefaultWeights()
	expected := w.Completeness*result.Completeness +
		w.Consistency*result.Consistency +
		w.Validity*result.Validity +
		w.Accuracy*result.Accuracy +
		w.Outlier*result.Outlier +
		w.DataUsage*result.DataUsage
	assert.InDelta(t, expected, result.Overall, 1e-9)
}

func TestBatchScoreSamplingMarksExcludedRecords(t *testing.T) {
	s := quality.New(patientSchema())
	records := make([]map[string]any, 4)
	for i := range records {
		records[i] = map[string]any{"patient_id": "p", "name": "n", "birth_date": "1990-01-01"}
	}
	results := s.BatchScore("patient", records, 0.5)
	require.Len(t, results, 4)
	assert.True(t, results[0].Sampled)
	assert.False(t, results[1].Sampled)
}

func TestSummarizeBucketsAndTopIssues(t *testing.T) {
	s := quality.New(patientSchema())
	var results []quality.Result
	results = append(results, s.Score("patient", map[string]any{
		"patient_id": "p-1", "name": "Jane Doe", "birth_date": "1990-01-01",
	}))
	results = append(results, s.Score("patient", map[string]any{
		"patient_id": "p-2",
	}))

	agg := quality.Summarize(results, 3)
	assert.Equal(t, 2, agg.RecordsScored)
	assert.GreaterOrEqual(t, agg.Distribution[quality.BucketExcellent]+agg.Distribution[quality.BucketPoor], 1)
	assert.NotEmpty(t, agg.TopIssues)
}
