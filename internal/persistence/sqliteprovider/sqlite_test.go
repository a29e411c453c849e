package sqliteprovider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/persistence"
	"github.com/pulsepipe/ingest/internal/persistence/sqliteprovider"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

func newProvider(t *testing.T) *sqliteprovider.Provider {
	t.Helper()
	p := sqliteprovider.New(":memory:")
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))
	require.NoError(t, p.InitializeSchema(ctx))
	t.Cleanup(func() { _ = p.Disconnect(ctx) })
	return p
}

func TestHealthCheck(t *testing.T) {
	p := newProvider(t)
	assert.True(t, p.HealthCheck(context.Background()))
}

func TestPipelineRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	require.NoError(t, p.StartPipelineRun(ctx, "run-1", "ingest-hl7", ""))
	require.NoError(t, p.UpdatePipelineRunCounts(ctx, "run-1", 3, 2, 1, 0))

	run, err := p.GetPipelineRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ingest-hl7", run.Name)
	assert.EqualValues(t, 3, run.TotalRecords)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	require.NoError(t, p.CompletePipelineRun(ctx, "run-1", model.RunStatusFailed, "boom"))
	run, err = p.GetPipelineRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, "boom", run.ErrorMessage)
}

func TestGetPipelineRunUnknown(t *testing.T) {
	p := newProvider(t)
	_, err := p.GetPipelineRun(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrUnknownPipelineRun)
}

func TestTransactionCommitAndNesting(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	tx, err := p.Transaction(ctx)
	require.NoError(t, err)

	_, err = p.Transaction(ctx)
	assert.ErrorIs(t, err, persistence.ErrNestedTransaction)

	require.NoError(t, tx.Commit())

	tx2, err := p.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestRecordIngestionStatAndSummary(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	require.NoError(t, p.StartPipelineRun(ctx, "run-2", "ingest", ""))

	_, err := p.RecordIngestionStat(ctx, model.IngestionStat{
		PipelineRunID: "run-2", StageName: "ingestion", Status: model.RecordStatusSuccess, RecordSizeBytes: 10,
	})
	require.NoError(t, err)
	_, err = p.RecordIngestionStat(ctx, model.IngestionStat{
		PipelineRunID: "run-2", StageName: "ingestion", Status: model.RecordStatusFailure,
		ErrorCategory: "ParseError", RecordSizeBytes: 20,
	})
	require.NoError(t, err)

	summary, err := p.GetIngestionSummary(ctx, "run-2", nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Total)
	assert.EqualValues(t, 1, summary.Failed)
	assert.EqualValues(t, 1, summary.ErrorBreakdown["ParseError"])
	assert.EqualValues(t, 30, summary.TotalBytesProcessed)
}

func TestRecordQualityMetricAndSummary(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	require.NoError(t, p.StartPipelineRun(ctx, "run-3", "ingest", ""))

	_, err := p.RecordQualityMetric(ctx, model.QualityMetric{
		PipelineRunID: "run-3", OverallScore: 0.8, Completeness: 0.9, Consistency: 0.7,
		Validity: 0.85, Accuracy: 0.8,
	})
	require.NoError(t, err)

	summary, err := p.GetQualitySummary(ctx, "run-3")
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Total)
	assert.InDelta(t, 0.8, summary.AvgOverall, 0.001)
}

func TestRecordFailedRecordAndAuditEvent(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	require.NoError(t, p.StartPipelineRun(ctx, "run-4", "ingest", ""))

	statID, err := p.RecordIngestionStat(ctx, model.IngestionStat{
		PipelineRunID: "run-4", StageName: "ingestion", Status: model.RecordStatusFailure,
	})
	require.NoError(t, err)

	failID, err := p.RecordFailedRecord(ctx, statID, `{"raw":true}`, "malformed segment", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, failID)

	eventID, err := p.RecordAuditEvent(ctx, model.AuditEvent{
		PipelineRunID: "run-4", EventType: "stage_failure", Message: "x12 parse failed", Level: model.AuditError,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, eventID)
}

func TestCleanupOldData(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	require.NoError(t, p.StartPipelineRun(ctx, "old-run", "ingest", ""))

	removed, err := p.CleanupOldData(ctx, -1)
	require.NoError(t, err)
	assert.Greater(t, removed, int64(0))

	_, err = p.GetPipelineRun(ctx, "old-run")
	assert.ErrorIs(t, err, persistence.ErrUnknownPipelineRun)
}

func TestSupportsFeature(t *testing.T) {
	p := sqliteprovider.New(":memory:")
	assert.True(t, p.SupportsFeature(persistence.FeatureTransactions))
	assert.True(t, p.SupportsFeature(persistence.FeatureJSONExtract))
	assert.False(t, p.SupportsFeature(persistence.FeatureFullTextSearch))
}
