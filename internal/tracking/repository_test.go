package tracking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/persistence/docstore"
	"github.com/pulsepipe/ingest/internal/tracking"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

func newRepo(t *testing.T) *tracking.Repository {
	t.Helper()
	repo := tracking.New(docstore.New())
	require.NoError(t, repo.Connect(context.Background()))
	return repo
}

func TestStartAndCompleteRun(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	runID, err := repo.StartRun(ctx, "ingest-run", map[string]any{"adapter": "file_watcher"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, repo.IncrementRunCounts(ctx, runID, 5, 4, 1, 0))
	run, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, run.TotalRecords)
	assert.LessOrEqual(t, run.Successful+run.Failed+run.Skipped, run.TotalRecords)

	require.NoError(t, repo.CompleteRun(ctx, runID, model.RunStatusCompleted, ""))
	run, err = repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, run.Status.IsTerminal())
}

func TestRecordOutcomeLinksFailedRecord(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	runID, err := repo.StartRun(ctx, "ingest-run", nil)
	require.NoError(t, err)

	_, err = repo.RecordOutcome(ctx, model.IngestionStat{
		PipelineRunID: runID,
		StageName:     "ingestion",
		Status:        model.RecordStatusFailure,
		ErrorMessage:  "malformed segment",
	}, `{"raw":"ISA*00"}`)
	require.NoError(t, err)

	summary, err := repo.IngestionSummary(ctx, runID, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Failed)
}

func TestBookmarkRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	marked, err := repo.IsPathBookmarked(ctx, "a/b.json")
	require.NoError(t, err)
	assert.False(t, marked)

	require.NoError(t, repo.MarkPathBookmarked(ctx, "a/b.json", "processed"))
	marked, err = repo.IsPathBookmarked(ctx, "a/b.json")
	require.NoError(t, err)
	assert.True(t, marked)
}
