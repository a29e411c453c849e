package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/classify"
	"github.com/pulsepipe/ingest/internal/pipeline"
)

type fakeTracker struct {
	mu       sync.Mutex
	success  int
	failures int
}

func (f *fakeTracker) RecordSuccess(string, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.success++
}

func (f *fakeTracker) RecordFailure(string, time.Duration, classify.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
}

func upperStage(_ context.Context, rec pipeline.Record) (pipeline.Record, error) {
	rec.Data["stage_seen"] = true
	return rec, nil
}

func TestRunPassesRecordsThroughEnabledStages(t *testing.T) {
	stages := []pipeline.StageDef{
		{Name: "deid", Enabled: true, Run: upperStage},
		{Name: "chunk", Enabled: false, Run: func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
			t.Fatal("disabled stage must not run")
			return rec, nil
		}},
		{Name: "embed", Enabled: true, Run: upperStage},
	}

	input := []pipeline.Record{
		{ID: "1", Data: map[string]any{}},
		{ID: "2", Data: map[string]any{}},
	}

	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{})
	result := exec.Run(context.Background())

	assert.Equal(t, "completed", result.Status)
	assert.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, true, r.Data["stage_seen"])
	}
	assert.Empty(t, result.Errors)
}

func TestRunClassifiesStageFailuresWithoutStoppingOtherRecords(t *testing.T) {
	stages := []pipeline.StageDef{
		{Name: "deid", Enabled: true, Run: func(_ context.Context, rec pipeline.Record) (pipeline.Record, error) {
			if rec.ID == "bad" {
				return rec, errors.New("malformed record")
			}
			return rec, nil
		}},
	}

	input := []pipeline.Record{
		{ID: "good", Data: map[string]any{}},
		{ID: "bad", Data: map[string]any{}},
	}

	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{})
	result := exec.Run(context.Background())

	assert.Len(t, result.Results, 1)
	assert.Equal(t, "good", result.Results[0].ID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].RecordID)
	assert.Equal(t, "deid", result.Errors[0].StageName)
}

func TestRunInvokesTrackerForSuccessAndFailure(t *testing.T) {
	tracker := &fakeTracker{}
	stages := []pipeline.StageDef{
		{Name: "deid", Enabled: true, Run: func(_ context.Context, rec pipeline.Record) (pipeline.Record, error) {
			if rec.ID == "2" {
				return rec, errors.New("boom")
			}
			return rec, nil
		}},
	}

	input := []pipeline.Record{{ID: "1", Data: map[string]any{}}, {ID: "2", Data: map[string]any{}}}
	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{}).WithTracker("deid", tracker)
	exec.Run(context.Background())

	assert.Equal(t, 1, tracker.success)
	assert.Equal(t, 1, tracker.failures)
}

func TestRunWithNoEnabledStagesPassesRecordsThrough(t *testing.T) {
	stages := []pipeline.StageDef{{Name: "deid", Enabled: false, Run: upperStage}}
	input := []pipeline.Record{{ID: "1", Data: map[string]any{}}}

	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{})
	result := exec.Run(context.Background())

	assert.Equal(t, "completed", result.Status)
	require.Len(t, result.Results, 1)
	assert.Nil(t, result.Results[0].Data["stage_seen"])
}

func TestRunRespectsPipelineTimeout(t *testing.T) {
	stages := []pipeline.StageDef{
		{Name: "slow", Enabled: true, Run: func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return rec, nil
			case <-ctx.Done():
				return rec, ctx.Err()
			}
		}},
	}

	input := []pipeline.Record{{ID: "1", Data: map[string]any{}}}
	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{Timeout: 20 * time.Millisecond})
	result := exec.Run(context.Background())

	assert.Equal(t, "timeout", result.Status)
}

func TestRunRespectsCallerCancellation(t *testing.T) {
	stages := []pipeline.StageDef{
		{Name: "slow", Enabled: true, Run: func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return rec, nil
			case <-ctx.Done():
				return rec, ctx.Err()
			}
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	input := []pipeline.Record{{ID: "1", Data: map[string]any{}}}
	exec := pipeline.New(pipeline.SliceSource(input), "ingestion", stages, pipeline.Config{})
	result := exec.Run(ctx)

	assert.Equal(t, "cancelled", result.Status)
}

// TestRunStreamsContinuousSourceConcurrentlyWithDownstreamStages pins down
// the property main.go's file watcher wiring depends on: ingestion has no
// input queue of its own, so a source that keeps producing indefinitely
// (the adapter.continuous=true case) must let downstream stages start
// consuming immediately rather than waiting for the source to finish.
func TestRunStreamsContinuousSourceConcurrentlyWithDownstreamStages(t *testing.T) {
	source := func(ctx context.Context, emit func(pipeline.Record) error) error {
		for i := 0; ; i++ {
			if err := emit(pipeline.Record{ID: fmt.Sprintf("r%d", i), Data: map[string]any{}}); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Millisecond):
			}
		}
	}

	var seen int32
	stages := []pipeline.StageDef{
		{Name: "touch", Enabled: true, Run: func(_ context.Context, rec pipeline.Record) (pipeline.Record, error) {
			atomic.AddInt32(&seen, 1)
			return rec, nil
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()

	exec := pipeline.New(source, "ingestion", stages, pipeline.Config{})
	result := exec.Run(ctx)

	assert.Equal(t, "cancelled", result.Status)
	assert.True(t, atomic.LoadInt32(&seen) > 1, "downstream stage should have processed more than one record while ingestion kept producing")
}

func TestRunClassifiesSourceFailureAsIngestionError(t *testing.T) {
	source := func(ctx context.Context, emit func(pipeline.Record) error) error {
		if err := emit(pipeline.Record{ID: "1", Data: map[string]any{}}); err != nil {
			return err
		}
		return errors.New("watcher crashed")
	}

	exec := pipeline.New(source, "ingestion", nil, pipeline.Config{})
	result := exec.Run(context.Background())

	assert.Len(t, result.Results, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ingestion", result.Errors[0].StageName)
}
