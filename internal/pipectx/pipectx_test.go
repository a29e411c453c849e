package pipectx_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/audit"
	"github.com/pulsepipe/ingest/internal/classify"
	"github.com/pulsepipe/ingest/internal/pipectx"
	"github.com/pulsepipe/ingest/internal/pipeline"
	"github.com/pulsepipe/ingest/internal/tracking/stage"
)

func TestIsStageEnabledReflectsConstructorList(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion", "chunking"})

	assert.True(t, ctx.IsStageEnabled("ingestion"))
	assert.True(t, ctx.IsStageEnabled("chunking"))
	assert.False(t, ctx.IsStageEnabled("embedding"))
}

func TestStartEndStageRecordsExecutedStages(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion"})

	ctx.StartStage("ingestion")
	time.Sleep(time.Millisecond)
	ctx.EndStage("ingestion")

	assert.Equal(t, []string{"ingestion"}, ctx.ExecutedStages())
}

func TestAddErrorClassifiesAndAccumulates(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, nil)
	ctx.AddError("ingestion", errors.New("missing required field: patient_id"))

	errs := ctx.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "ingestion", errs[0].Stage)
}

func TestAddWarningAccumulatesAndLogsToAudit(t *testing.T) {
	logger := audit.New("run-1", nil, nil)
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, nil)
	ctx.Audit = logger

	ctx.AddWarning("low disk space on output volume")

	assert.Equal(t, []string{"low disk space on output volume"}, ctx.Warnings())
	assert.Equal(t, 1, logger.GetEventCount("", "", ""))
}

func TestCheckDependenciesWarnsWhenEmbeddingEnabledWithoutChunking(t *testing.T) {
	logger := audit.New("run-1", nil, nil)
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion", "embedding"})
	ctx.Audit = logger

	ctx.CheckDependencies()

	warnings := ctx.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "embedding enabled without")
	assert.Contains(t, warnings[0], "chunking")
	assert.Equal(t, 1, logger.GetEventCount("", "", ""))
}

func TestCheckDependenciesSilentWhenGraphFullySatisfied(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion", "deid", "chunking", "embedding", "vectorstore"})
	ctx.CheckDependencies()
	assert.Empty(t, ctx.Warnings())
}

func TestCheckDependenciesAllowsChunkingDirectlyFromIngestionWithoutDeid(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion", "chunking", "embedding", "vectorstore"})
	ctx.CheckDependencies()
	assert.Empty(t, ctx.Warnings())
}

func TestCheckDependenciesWarnsOnEveryUnsatisfiedStage(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"chunking", "vectorstore"})
	ctx.CheckDependencies()

	warnings := ctx.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "chunking enabled without")
	assert.Contains(t, warnings[1], "vectorstore enabled without")
}

func TestExportResultsJSON(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion"})
	ctx.StartStage("ingestion")
	ctx.EndStage("ingestion")

	result := pipeline.RunResult{Status: "completed", Results: []pipeline.Record{{ID: "1"}}, Duration: 5 * time.Millisecond}

	var buf bytes.Buffer
	require.NoError(t, ctx.ExportResults(result, "json", &buf))
	assert.Contains(t, buf.String(), `"pipeline_id": "run-1"`)
	assert.Contains(t, buf.String(), `"status": "completed"`)
}

func TestExportResultsCSV(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, nil)
	ctx.AddError("ingestion", errors.New("malformed record"))

	result := pipeline.RunResult{Status: "completed"}

	var buf bytes.Buffer
	require.NoError(t, ctx.ExportResults(result, "csv", &buf))
	out := buf.String()
	assert.Contains(t, out, "pipeline_id,name,status")
	assert.Contains(t, out, "Errors")
	assert.Contains(t, out, "ingestion")
}

func TestExportResultsHTML(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, []string{"ingestion"})
	result := pipeline.RunResult{Status: "completed"}

	var buf bytes.Buffer
	require.NoError(t, ctx.ExportResults(result, "html", &buf))
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")
	assert.Contains(t, buf.String(), "demo")
}

func TestTrackerForAdaptsStageTrackerIntoPipelineTracker(t *testing.T) {
	chunkTracker := stage.NewChunkingTracker("run-1", nil)
	var pt pipeline.Tracker = pipectx.TrackerFor(chunkTracker)

	pt.RecordSuccess("rec-1", 5*time.Millisecond)
	pt.RecordFailure("rec-2", 5*time.Millisecond, classify.Classify(errors.New("missing required field: patient_id"), "chunking", "rec-2", nil))

	summary := chunkTracker.GetSummary()
	assert.EqualValues(t, 1, summary.Counters.Success)
	assert.EqualValues(t, 1, summary.Counters.Failure)
}

func TestExportResultsUnknownFormat(t *testing.T) {
	ctx := pipectx.New("run-1", "demo", "/tmp/out", nil, nil)
	result := pipeline.RunResult{Status: "completed"}

	var buf bytes.Buffer
	err := ctx.ExportResults(result, "xml", &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipectx.ErrUnsupportedExportFormat)
}
