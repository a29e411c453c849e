// Package model defines the telemetry data model shared by the tracking
// repository, the persistence providers, and every component that reports
// into them: pipeline runs, per-record ingestion outcomes, quality scores,
// audit events, and performance/system snapshots.
package model

import "time"

// RunStatus is the lifecycle state of a PipelineRun.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the status is one that a PipelineRun cannot
// transition out of.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// RecordStatus is the outcome of a single record attempt within a stage.
type RecordStatus string

const (
	RecordStatusSuccess        RecordStatus = "success"
	RecordStatusFailure        RecordStatus = "failure"
	RecordStatusSkipped        RecordStatus = "skipped"
	RecordStatusPartialSuccess RecordStatus = "partial_success"
)

// AuditLevel mirrors Python logging levels for audit events.
type AuditLevel string

const (
	AuditDebug    AuditLevel = "DEBUG"
	AuditInfo     AuditLevel = "INFO"
	AuditWarning  AuditLevel = "WARNING"
	AuditError    AuditLevel = "ERROR"
	AuditCritical AuditLevel = "CRITICAL"
)

// QualitySeverity grades a QualityIssue.
type QualitySeverity string

const (
	QualitySeverityLow      QualitySeverity = "low"
	QualitySeverityMedium   QualitySeverity = "medium"
	QualitySeverityHigh     QualitySeverity = "high"
	QualitySeverityCritical QualitySeverity = "critical"
)

// PipelineRun identifies one execution of the pipeline.
type PipelineRun struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status         RunStatus  `json:"status" db:"status"`
	TotalRecords   int64      `json:"total_records" db:"total_records"`
	Successful     int64      `json:"successful" db:"successful"`
	Failed         int64      `json:"failed" db:"failed"`
	Skipped        int64      `json:"skipped" db:"skipped"`
	ConfigSnapshot string     `json:"config_snapshot,omitempty" db:"config_snapshot"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
}

// IngestionStat is one processed record attempt, immutable once written.
type IngestionStat struct {
	ID              string       `json:"id" db:"id"`
	PipelineRunID   string       `json:"pipeline_run_id" db:"pipeline_run_id"`
	StageName       string       `json:"stage_name" db:"stage_name"`
	FilePath        string       `json:"file_path,omitempty" db:"file_path"`
	RecordID        string       `json:"record_id,omitempty" db:"record_id"`
	RecordType      string       `json:"record_type,omitempty" db:"record_type"`
	Status          RecordStatus `json:"status" db:"status"`
	ErrorCategory   string       `json:"error_category,omitempty" db:"error_category"`
	ErrorMessage    string       `json:"error_message,omitempty" db:"error_message"`
	ErrorDetails    string       `json:"error_details,omitempty" db:"error_details"` // JSON-encoded
	ProcessingTime  time.Duration `json:"processing_time_ms" db:"processing_time_ms"`
	RecordSizeBytes int64        `json:"record_size_bytes" db:"record_size_bytes"`
	DataSource      string       `json:"data_source,omitempty" db:"data_source"`
	Timestamp       time.Time    `json:"timestamp" db:"timestamp"`
}

// FailedRecord is the forensic-replay payload of a failure, referencing an
// IngestionStat 1:1-optional.
type FailedRecord struct {
	ID               string `json:"id" db:"id"`
	IngestionStatID  string `json:"ingestion_stat_id" db:"ingestion_stat_id"`
	OriginalData     string `json:"original_data" db:"original_data"`
	NormalizedData   string `json:"normalized_data,omitempty" db:"normalized_data"`
	FailureReason    string `json:"failure_reason" db:"failure_reason"`
	StackTrace       string `json:"stack_trace,omitempty" db:"stack_trace"`
}

// QualityIssue is an embedded finding within a QualityMetric.
type QualityIssue struct {
	Dimension      string          `json:"dimension"`
	Severity       QualitySeverity `json:"severity"`
	FieldName      string          `json:"field_name"`
	IssueType      string          `json:"issue_type"`
	Description    string          `json:"description"`
	SuggestedFix   string          `json:"suggested_fix,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// QualityMetric is one scored record.
type QualityMetric struct {
	ID                string         `json:"id" db:"id"`
	PipelineRunID     string         `json:"pipeline_run_id" db:"pipeline_run_id"`
	RecordID          string         `json:"record_id,omitempty" db:"record_id"`
	RecordType        string         `json:"record_type,omitempty" db:"record_type"`
	Completeness      float64        `json:"completeness" db:"completeness"`
	Consistency       float64        `json:"consistency" db:"consistency"`
	Validity          float64        `json:"validity" db:"validity"`
	Accuracy          float64        `json:"accuracy" db:"accuracy"`
	Outlier           float64        `json:"outlier" db:"outlier"`
	DataUsage         float64        `json:"data_usage" db:"data_usage"`
	OverallScore      float64        `json:"overall_score" db:"overall_score"`
	MissingFields     []string       `json:"missing_fields,omitempty" db:"-"`
	InvalidFields     []string       `json:"invalid_fields,omitempty" db:"-"`
	OutlierFields     []string       `json:"outlier_fields,omitempty" db:"-"`
	UnusedFields      []string       `json:"unused_fields,omitempty" db:"-"`
	Issues            []QualityIssue `json:"issues,omitempty" db:"-"`
	Sampled           bool           `json:"sampled" db:"sampled"`
	Timestamp         time.Time      `json:"timestamp" db:"timestamp"`
}

// AuditEvent is one observable pipeline event.
type AuditEvent struct {
	ID            string         `json:"id" db:"id"`
	PipelineRunID string         `json:"pipeline_run_id" db:"pipeline_run_id"`
	EventType     string         `json:"event_type" db:"event_type"`
	StageName     string         `json:"stage_name,omitempty" db:"stage_name"`
	Message       string         `json:"message" db:"message"`
	Level         AuditLevel     `json:"level" db:"level"`
	RecordID      string         `json:"record_id,omitempty" db:"record_id"`
	Details       map[string]any `json:"details,omitempty" db:"-"`
	CorrelationID string         `json:"correlation_id,omitempty" db:"correlation_id"`
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
}

// PerformanceMetric is per-stage timing recorded through the tracking
// repository (distinct from the in-process perf.PipelineTracker, which
// computes these before handing one off for persistence).
type PerformanceMetric struct {
	PipelineRunID      string        `json:"pipeline_run_id" db:"pipeline_run_id"`
	StageName          string        `json:"stage_name" db:"stage_name"`
	StartedAt          time.Time     `json:"started_at" db:"started_at"`
	CompletedAt        time.Time     `json:"completed_at" db:"completed_at"`
	DurationMs         int64         `json:"duration_ms" db:"duration_ms"`
	RecordsProcessed   int64         `json:"records_processed" db:"records_processed"`
	RecordsPerSecond   float64       `json:"records_per_second" db:"records_per_second"`
	MemoryUsageMB      float64       `json:"memory_usage_mb,omitempty" db:"memory_usage_mb"`
	CPUUsagePercent    float64       `json:"cpu_usage_percent,omitempty" db:"cpu_usage_percent"`
	BottleneckIndicator string       `json:"bottleneck_indicator,omitempty" db:"bottleneck_indicator"`
}

// SystemMetric is a point-in-time host snapshot bound to a run.
type SystemMetric struct {
	PipelineRunID   string         `json:"pipeline_run_id" db:"pipeline_run_id"`
	Hostname        string         `json:"hostname" db:"hostname"`
	OS              string         `json:"os" db:"os"`
	OSVersion       string         `json:"os_version" db:"os_version"`
	RuntimeVersion  string         `json:"runtime_version" db:"runtime_version"`
	CPUModel        string         `json:"cpu_model" db:"cpu_model"`
	CPUCores        int            `json:"cpu_cores" db:"cpu_cores"`
	MemoryTotalGB   float64        `json:"memory_total_gb" db:"memory_total_gb"`
	GPUAvailable    bool           `json:"gpu_available" db:"gpu_available"`
	GPUModel        string         `json:"gpu_model,omitempty" db:"gpu_model"`
	AdditionalInfo  map[string]any `json:"additional_info,omitempty" db:"-"`
	Timestamp       time.Time      `json:"timestamp" db:"timestamp"`
}

// Bookmark is a processed-file marker.
type Bookmark struct {
	Path        string    `json:"path" db:"path"`
	Status      string    `json:"status" db:"status"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}

// IngestionSummary aggregates IngestionStat rows for analytics.
type IngestionSummary struct {
	Total                int64          `json:"total"`
	Successful           int64          `json:"successful"`
	Failed               int64          `json:"failed"`
	Skipped              int64          `json:"skipped"`
	ErrorBreakdown       map[string]int64 `json:"error_breakdown"`
	AvgProcessingTimeMs  float64        `json:"avg_processing_time_ms"`
	TotalBytesProcessed  int64          `json:"total_bytes_processed"`
}

// QualitySummary aggregates QualityMetric rows for analytics.
type QualitySummary struct {
	Total            int64   `json:"total"`
	AvgCompleteness  float64 `json:"avg_completeness"`
	AvgConsistency   float64 `json:"avg_consistency"`
	AvgValidity      float64 `json:"avg_validity"`
	AvgAccuracy      float64 `json:"avg_accuracy"`
	AvgOverall       float64 `json:"avg_overall"`
	MinOverall       float64 `json:"min_overall"`
	MaxOverall       float64 `json:"max_overall"`
}
