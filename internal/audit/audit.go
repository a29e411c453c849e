// Package audit implements the correlated event stream bound to one
// pipeline run (C8): convenience log wrappers, a scoped correlation-id
// stack, bounded buffering mirrored to the tracking repository, and
// filtered export. Grounded on the teacher's correlation-injection
// pattern in engine/telemetry/logging/logging.go, generalized from
// trace/span ids to a caller-scoped correlation stack.
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsepipe/ingest/internal/tracking/model"
)

const (
	bufferCap          = 1000
	defaultAutoFlush   = 100
)

// Recorder is the narrow tracking.Repository slice the audit logger
// mirrors events into.
type Recorder interface {
	RecordAudit(ctx context.Context, e model.AuditEvent) (string, error)
}

// ErrorLogger receives errors the audit logger itself cannot propagate
// (mirroring failures) — typically *obslog's zerolog.Logger.
type ErrorLogger interface {
	Printf(format string, args ...any)
}

// Logger is the correlated, buffered audit event stream for one run.
type Logger struct {
	runID              string
	recorder           Recorder
	errLog             ErrorLogger
	recordLevelEnabled bool
	autoFlushThreshold int

	mu             sync.Mutex
	buffer         []model.AuditEvent
	pending        []model.AuditEvent
	correlationIDs []string
}

// New constructs a Logger bound to runID. recorder may be nil for a
// logger that only buffers in-memory (e.g. in tests).
func New(runID string, recorder Recorder, errLog ErrorLogger) *Logger {
	return &Logger{
		runID:              runID,
		recorder:           recorder,
		errLog:             errLog,
		autoFlushThreshold: defaultAutoFlush,
	}
}

// SetRecordLevelTracking gates LogRecordProcessed, per
// audit_trail.record_level_tracking in spec.md §6.
func (l *Logger) SetRecordLevelTracking(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLevelEnabled = enabled
}

// SetAutoFlushThreshold overrides the default of 100.
func (l *Logger) SetAutoFlushThreshold(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.autoFlushThreshold = n
}

// CorrelationContext pushes id (or an auto-generated short id) onto the
// correlation stack and returns an end func that pops it; nested
// contexts shadow outer ones.
func (l *Logger) CorrelationContext(id string) (correlationID string, end func()) {
	if id == "" {
		id = uuid.NewString()[:8]
	}
	l.mu.Lock()
	l.correlationIDs = append(l.correlationIDs, id)
	l.mu.Unlock()

	return id, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if n := len(l.correlationIDs); n > 0 {
			l.correlationIDs = l.correlationIDs[:n-1]
		}
	}
}

func (l *Logger) topCorrelationID() string {
	if n := len(l.correlationIDs); n > 0 {
		return l.correlationIDs[n-1]
	}
	return ""
}

// LogEvent records one audit event, tagging it with the current
// correlation id, buffering it, and queueing it for mirroring. The
// pending queue flushes through the repository in a batch once it
// reaches autoFlushThreshold; repository errors are logged, never
// propagated — per spec.md §4.8.
func (l *Logger) LogEvent(e model.AuditEvent) {
	l.mu.Lock()
	e.PipelineRunID = l.runID
	if e.CorrelationID == "" {
		e.CorrelationID = l.topCorrelationID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	l.buffer = append(l.buffer, e)
	if len(l.buffer) > bufferCap {
		l.buffer = l.buffer[len(l.buffer)-bufferCap:]
	}
	l.pending = append(l.pending, e)
	var toFlush []model.AuditEvent
	if len(l.pending) >= l.autoFlushThreshold {
		toFlush = l.pending
		l.pending = nil
	}
	l.mu.Unlock()

	l.flush(toFlush)
}

// Flush forces whatever is pending through the repository immediately,
// regardless of the auto-flush threshold.
func (l *Logger) Flush() {
	l.mu.Lock()
	toFlush := l.pending
	l.pending = nil
	l.mu.Unlock()
	l.flush(toFlush)
}

func (l *Logger) flush(events []model.AuditEvent) {
	if l.recorder == nil {
		return
	}
	for _, e := range events {
		if _, err := l.recorder.RecordAudit(context.Background(), e); err != nil && l.errLog != nil {
			l.errLog.Printf("audit: mirror event failed: %v", err)
		}
	}
}

func (l *Logger) LogPipelineStarted(name string) {
	l.LogEvent(model.AuditEvent{EventType: "pipeline_started", Message: fmt.Sprintf("pipeline %q started", name), Level: model.AuditInfo})
}

func (l *Logger) LogStageFailed(stage string, err error) {
	l.LogEvent(model.AuditEvent{EventType: "stage_failed", StageName: stage, Message: err.Error(), Level: model.AuditError})
}

func (l *Logger) LogRecordProcessed(stage, recordID string) {
	l.mu.Lock()
	enabled := l.recordLevelEnabled
	l.mu.Unlock()
	if !enabled {
		return
	}
	l.LogEvent(model.AuditEvent{EventType: "record_processed", StageName: stage, RecordID: recordID, Message: "record processed", Level: model.AuditDebug})
}

func (l *Logger) LogValidationFailed(stage, recordID, reason string) {
	l.LogEvent(model.AuditEvent{EventType: "validation_failed", StageName: stage, RecordID: recordID, Message: reason, Level: model.AuditWarning})
}

// LogDataQualityCheck logs a quality score event; level is WARNING below
// 0.8, else INFO, exactly as spec.md §4.8 states.
func (l *Logger) LogDataQualityCheck(stage, recordID string, score float64, issues []string) {
	level := model.AuditInfo
	if score < 0.8 {
		level = model.AuditWarning
	}
	l.LogEvent(model.AuditEvent{
		EventType: "data_quality_check",
		StageName: stage,
		RecordID:  recordID,
		Message:   fmt.Sprintf("quality score %.3f", score),
		Level:     level,
		Details:   map[string]any{"score": score, "issues": issues},
	})
}

func (l *Logger) LogPerformanceMetric(stage string, durationMs int64) {
	l.LogEvent(model.AuditEvent{EventType: "performance_metric", StageName: stage, Message: fmt.Sprintf("%dms", durationMs), Level: model.AuditInfo, Details: map[string]any{"duration_ms": durationMs}})
}

func (l *Logger) LogWarning(stage, message string) {
	l.LogEvent(model.AuditEvent{EventType: "warning", StageName: stage, Message: message, Level: model.AuditWarning})
}

func (l *Logger) LogError(stage, message string) {
	l.LogEvent(model.AuditEvent{EventType: "error", StageName: stage, Message: message, Level: model.AuditError})
}

// GetEvents filters buffered events by optional eventType/level/stageName.
func (l *Logger) GetEvents(eventType string, level model.AuditLevel, stageName string) []model.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.AuditEvent
	for _, e := range l.buffer {
		if eventType != "" && e.EventType != eventType {
			continue
		}
		if level != "" && e.Level != level {
			continue
		}
		if stageName != "" && e.StageName != stageName {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (l *Logger) GetEventCount(eventType string, level model.AuditLevel, stageName string) int {
	return len(l.GetEvents(eventType, level, stageName))
}

// ExportEvents writes the filtered event set to w as json or csv.
func (l *Logger) ExportEvents(w io.Writer, format, eventType string) error {
	events := l.GetEvents(eventType, "", "")
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "event_type", "stage_name", "message", "level", "record_id", "correlation_id", "timestamp"}); err != nil {
			return err
		}
		for _, e := range events {
			if err := cw.Write([]string{
				e.ID, e.EventType, e.StageName, e.Message, string(e.Level), e.RecordID, e.CorrelationID,
				e.Timestamp.Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("audit: unsupported export format: %s", format)
	}
}
