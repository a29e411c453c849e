package audit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/audit"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

type fakeRecorder struct {
	events []model.AuditEvent
	failNext bool
}

func (f *fakeRecorder) RecordAudit(ctx context.Context, e model.AuditEvent) (string, error) {
	if f.failNext {
		return "", errors.New("db unavailable")
	}
	f.events = append(f.events, e)
	return "id", nil
}

type noopErrLogger struct{ calls int }

func (l *noopErrLogger) Printf(format string, args ...any) { l.calls++ }

func TestLogEventTagsCorrelationID(t *testing.T) {
	rec := &fakeRecorder{}
	log := audit.New("run-1", rec, nil)

	id, end := log.CorrelationContext("")
	require.NotEmpty(t, id)
	log.LogEvent(model.AuditEvent{EventType: "test", Message: "hi", Level: model.AuditInfo})
	end()

	events := log.GetEvents("", "", "")
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].CorrelationID)
}

func TestNestedCorrelationShadowsOuter(t *testing.T) {
	log := audit.New("run-1", nil, nil)
	outer, endOuter := log.CorrelationContext("outer")
	inner, endInner := log.CorrelationContext("inner")

	log.LogEvent(model.AuditEvent{EventType: "nested", Message: "x"})
	endInner()
	log.LogEvent(model.AuditEvent{EventType: "after-inner", Message: "y"})
	endOuter()

	events := log.GetEvents("", "", "")
	require.Len(t, events, 2)
	assert.Equal(t, inner, events[0].CorrelationID)
	assert.Equal(t, outer, events[1].CorrelationID)
}

func TestDataQualityCheckLevel(t *testing.T) {
	log := audit.New("run-1", nil, nil)
	log.LogDataQualityCheck("quality", "rec-1", 0.5, []string{"missing field"})
	log.LogDataQualityCheck("quality", "rec-2", 0.95, nil)

	low := log.GetEvents("data_quality_check", model.AuditWarning, "")
	high := log.GetEvents("data_quality_check", model.AuditInfo, "")
	assert.Len(t, low, 1)
	assert.Len(t, high, 1)
}

func TestRecordLevelLoggingGated(t *testing.T) {
	log := audit.New("run-1", nil, nil)
	log.LogRecordProcessed("ingestion", "rec-1")
	assert.Empty(t, log.GetEvents("record_processed", "", ""))

	log.SetRecordLevelTracking(true)
	log.LogRecordProcessed("ingestion", "rec-2")
	assert.Len(t, log.GetEvents("record_processed", "", ""), 1)
}

func TestAutoFlushThreshold(t *testing.T) {
	rec := &fakeRecorder{}
	log := audit.New("run-1", rec, nil)
	log.SetAutoFlushThreshold(3)

	for i := 0; i < 2; i++ {
		log.LogEvent(model.AuditEvent{EventType: "e", Message: "m"})
	}
	assert.Empty(t, rec.events) // below threshold, not yet flushed

	log.LogEvent(model.AuditEvent{EventType: "e", Message: "m"})
	assert.Len(t, rec.events, 3) // threshold reached, batch flushed
}

func TestMirrorErrorsAreLoggedNotPropagated(t *testing.T) {
	rec := &fakeRecorder{failNext: true}
	errLog := &noopErrLogger{}
	log := audit.New("run-1", rec, errLog)
	log.SetAutoFlushThreshold(1)

	require.NotPanics(t, func() {
		log.LogEvent(model.AuditEvent{EventType: "e", Message: "m"})
	})
	assert.Equal(t, 1, errLog.calls)
}

func TestExportEventsJSONAndCSV(t *testing.T) {
	log := audit.New("run-1", nil, nil)
	log.LogEvent(model.AuditEvent{EventType: "pipeline_started", Message: "go"})

	var jsonBuf bytes.Buffer
	require.NoError(t, log.ExportEvents(&jsonBuf, "json", ""))
	assert.Contains(t, jsonBuf.String(), "pipeline_started")

	var csvBuf bytes.Buffer
	require.NoError(t, log.ExportEvents(&csvBuf, "csv", ""))
	assert.Contains(t, csvBuf.String(), "event_type")
}

func TestExportEventsUnsupportedFormat(t *testing.T) {
	log := audit.New("run-1", nil, nil)
	var buf bytes.Buffer
	assert.Error(t, log.ExportEvents(&buf, "yaml", ""))
}
