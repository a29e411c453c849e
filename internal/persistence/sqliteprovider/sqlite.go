// Package sqliteprovider implements persistence.Provider against a
// pure-Go sqlite driver (modernc.org/sqlite), accessed through sqlx for
// struct-scanning the way the spec's dialect/adapter describes emitting
// parameterized SQL with positional placeholders.
package sqliteprovider

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pulsepipe/ingest/internal/persistence"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// Provider is a relational persistence.Provider backed by sqlite.
type Provider struct {
	dsn string
	db  *sqlx.DB

	mu      sync.Mutex
	inTx    bool
}

// New constructs a Provider for the given sqlite DSN (e.g. "file.db" or
// "file::memory:?cache=shared"). Connect must be called before use.
func New(dsn string) *Provider {
	return &Provider{dsn: dsn}
}

func (p *Provider) Connect(ctx context.Context) error {
	db, err := sqlx.Open("sqlite", p.dsn)
	if err != nil {
		return persistence.NewConnectionError("open sqlite", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline per spec §5
	if err := db.PingContext(ctx); err != nil {
		return persistence.NewConnectionError("ping sqlite", err)
	}
	p.db = db
	return nil
}

func (p *Provider) Disconnect(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Provider) HealthCheck(ctx context.Context) bool {
	if p.db == nil {
		return false
	}
	if err := p.db.PingContext(ctx); err == nil {
		return true
	}
	// retry once, per spec §4.1
	time.Sleep(10 * time.Millisecond)
	return p.db.PingContext(ctx) == nil
}

func (p *Provider) SupportsFeature(name string) bool {
	switch name {
	case persistence.FeatureTransactions, persistence.FeatureJSONExtract:
		return true
	case persistence.FeatureFullTextSearch:
		return false
	default:
		return false
	}
}

type sqlTx struct {
	tx *sqlx.Tx
	p  *Provider
}

func (t *sqlTx) Commit() error {
	defer t.p.releaseTx()
	if err := t.tx.Commit(); err != nil {
		return persistence.NewTransactionError("commit", err)
	}
	return nil
}
func (t *sqlTx) Rollback() error {
	defer t.p.releaseTx()
	if err := t.tx.Rollback(); err != nil {
		return persistence.NewTransactionError("rollback", err)
	}
	return nil
}
func (p *Provider) releaseTx() {
	p.mu.Lock()
	p.inTx = false
	p.mu.Unlock()
}

func (p *Provider) Transaction(ctx context.Context) (persistence.Tx, error) {
	p.mu.Lock()
	if p.inTx {
		p.mu.Unlock()
		return nil, persistence.ErrNestedTransaction
	}
	p.inTx = true
	p.mu.Unlock()

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		p.releaseTx()
		return nil, persistence.NewTransactionError("begin", err)
	}
	return &sqlTx{tx: tx, p: p}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	status TEXT NOT NULL,
	total_records INTEGER NOT NULL DEFAULT 0,
	successful INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	config_snapshot TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at DESC);

CREATE TABLE IF NOT EXISTS ingestion_stats (
	id TEXT PRIMARY KEY,
	pipeline_run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage_name TEXT NOT NULL,
	file_path TEXT,
	record_id TEXT,
	record_type TEXT,
	status TEXT NOT NULL,
	error_category TEXT,
	error_message TEXT,
	error_details TEXT,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	record_size_bytes INTEGER NOT NULL DEFAULT 0,
	data_source TEXT,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingestion_stats_run_ts ON ingestion_stats(pipeline_run_id, timestamp);

CREATE TABLE IF NOT EXISTS failed_records (
	id TEXT PRIMARY KEY,
	ingestion_stat_id TEXT REFERENCES ingestion_stats(id),
	original_data TEXT NOT NULL,
	normalized_data TEXT,
	failure_reason TEXT NOT NULL,
	stack_trace TEXT
);

CREATE TABLE IF NOT EXISTS quality_metrics (
	id TEXT PRIMARY KEY,
	pipeline_run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	record_id TEXT,
	record_type TEXT,
	completeness REAL NOT NULL,
	consistency REAL NOT NULL,
	validity REAL NOT NULL,
	accuracy REAL NOT NULL,
	outlier REAL NOT NULL,
	data_usage REAL NOT NULL,
	overall_score REAL NOT NULL,
	missing_fields TEXT,
	invalid_fields TEXT,
	outlier_fields TEXT,
	unused_fields TEXT,
	issues TEXT,
	sampled INTEGER NOT NULL DEFAULT 1,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quality_metrics_run_ts ON quality_metrics(pipeline_run_id, timestamp);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	pipeline_run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	event_type TEXT NOT NULL,
	stage_name TEXT,
	message TEXT NOT NULL,
	level TEXT NOT NULL,
	record_id TEXT,
	details TEXT,
	correlation_id TEXT,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_run_ts ON audit_events(pipeline_run_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_type_level ON audit_events(event_type, level);

CREATE TABLE IF NOT EXISTS performance_metrics (
	id TEXT PRIMARY KEY,
	pipeline_run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage_name TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	records_processed INTEGER NOT NULL,
	records_per_second REAL NOT NULL,
	memory_usage_mb REAL,
	cpu_usage_percent REAL,
	bottleneck_indicator TEXT
);
CREATE INDEX IF NOT EXISTS idx_performance_metrics_run_ts ON performance_metrics(pipeline_run_id, started_at);

CREATE TABLE IF NOT EXISTS bookmarks (
	path TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	processed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS system_metrics (
	id TEXT PRIMARY KEY,
	pipeline_run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	hostname TEXT,
	os TEXT,
	os_version TEXT,
	runtime_version TEXT,
	cpu_model TEXT,
	cpu_cores INTEGER,
	memory_total_gb REAL,
	gpu_available INTEGER,
	gpu_model TEXT,
	additional_info TEXT,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_system_metrics_run_ts ON system_metrics(pipeline_run_id, timestamp);
`

func (p *Provider) InitializeSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return persistence.NewQueryError("initialize schema", err)
	}
	return nil
}

func (p *Provider) StartPipelineRun(ctx context.Context, id, name, configSnapshot string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, name, started_at, status, config_snapshot, error_message) VALUES (?, ?, ?, ?, ?, '')`,
		id, name, time.Now().UTC(), model.RunStatusRunning, configSnapshot)
	if err != nil {
		return persistence.NewQueryError("start pipeline run", err)
	}
	return nil
}

func (p *Provider) CompletePipelineRun(ctx context.Context, id string, status model.RunStatus, errMsg string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET completed_at = ?, status = ?, error_message = ?
		 WHERE id = ? AND status = ?`,
		time.Now().UTC(), status, errMsg, id, model.RunStatusRunning)
	if err != nil {
		return persistence.NewQueryError("complete pipeline run", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Either unknown id or already terminal: monotonic terminal status,
		// so this is a silent no-op rather than an error.
		return nil
	}
	return nil
}

func (p *Provider) UpdatePipelineRunCounts(ctx context.Context, id string, dTotal, dSuccessful, dFailed, dSkipped int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET total_records = total_records + ?, successful = successful + ?,
		 failed = failed + ?, skipped = skipped + ? WHERE id = ? AND status = ?`,
		dTotal, dSuccessful, dFailed, dSkipped, id, model.RunStatusRunning)
	if err != nil {
		return persistence.NewQueryError("update pipeline run counts", err)
	}
	return nil
}

func (p *Provider) GetPipelineRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	var run model.PipelineRun
	err := p.db.GetContext(ctx, &run, `SELECT * FROM pipeline_runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, persistence.ErrUnknownPipelineRun
	}
	if err != nil {
		return nil, persistence.NewQueryError("get pipeline run", err)
	}
	return &run, nil
}

func (p *Provider) GetRecentPipelineRuns(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []model.PipelineRun
	err := p.db.SelectContext(ctx, &runs, `SELECT * FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistence.NewQueryError("get recent pipeline runs", err)
	}
	return runs, nil
}

func (p *Provider) RecordIngestionStat(ctx context.Context, s model.IngestionStat) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ingestion_stats (id, pipeline_run_id, stage_name, file_path, record_id, record_type,
		 status, error_category, error_message, error_details, processing_time_ms, record_size_bytes,
		 data_source, timestamp) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.PipelineRunID, s.StageName, s.FilePath, s.RecordID, s.RecordType, s.Status,
		s.ErrorCategory, s.ErrorMessage, s.ErrorDetails, s.ProcessingTime.Milliseconds(),
		s.RecordSizeBytes, s.DataSource, s.Timestamp)
	if err != nil {
		return "", persistence.NewQueryError("record ingestion stat", err)
	}
	return s.ID, nil
}

func (p *Provider) RecordFailedRecord(ctx context.Context, statID, original, reason, normalized, stack string) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO failed_records (id, ingestion_stat_id, original_data, normalized_data, failure_reason, stack_trace)
		 VALUES (?,?,?,?,?,?)`,
		id, statID, original, normalized, reason, stack)
	if err != nil {
		return "", persistence.NewQueryError("record failed record", err)
	}
	return id, nil
}

func (p *Provider) RecordQualityMetric(ctx context.Context, m model.QualityMetric) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	missing, _ := json.Marshal(m.MissingFields)
	invalid, _ := json.Marshal(m.InvalidFields)
	outliers, _ := json.Marshal(m.OutlierFields)
	unused, _ := json.Marshal(m.UnusedFields)
	issues, _ := json.Marshal(m.Issues)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO quality_metrics (id, pipeline_run_id, record_id, record_type, completeness, consistency,
		 validity, accuracy, outlier, data_usage, overall_score, missing_fields, invalid_fields, outlier_fields,
		 unused_fields, issues, sampled, timestamp) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.PipelineRunID, m.RecordID, m.RecordType, m.Completeness, m.Consistency, m.Validity,
		m.Accuracy, m.Outlier, m.DataUsage, m.OverallScore, string(missing), string(invalid),
		string(outliers), string(unused), string(issues), m.Sampled, m.Timestamp)
	if err != nil {
		return "", persistence.NewQueryError("record quality metric", err)
	}
	return m.ID, nil
}

func (p *Provider) RecordAuditEvent(ctx context.Context, e model.AuditEvent) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	details, _ := json.Marshal(e.Details)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, pipeline_run_id, event_type, stage_name, message, level, record_id,
		 details, correlation_id, timestamp) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.PipelineRunID, e.EventType, e.StageName, e.Message, e.Level, e.RecordID,
		string(details), e.CorrelationID, e.Timestamp)
	if err != nil {
		return "", persistence.NewQueryError("record audit event", err)
	}
	return e.ID, nil
}

func (p *Provider) RecordPerformanceMetric(ctx context.Context, m model.PerformanceMetric) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO performance_metrics (id, pipeline_run_id, stage_name, started_at, completed_at, duration_ms,
		 records_processed, records_per_second, memory_usage_mb, cpu_usage_percent, bottleneck_indicator)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, m.PipelineRunID, m.StageName, m.StartedAt, m.CompletedAt, m.DurationMs, m.RecordsProcessed,
		m.RecordsPerSecond, m.MemoryUsageMB, m.CPUUsagePercent, m.BottleneckIndicator)
	if err != nil {
		return "", persistence.NewQueryError("record performance metric", err)
	}
	return id, nil
}

func (p *Provider) RecordSystemMetric(ctx context.Context, m model.SystemMetric) (string, error) {
	id := uuid.NewString()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	info, _ := json.Marshal(m.AdditionalInfo)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO system_metrics (id, pipeline_run_id, hostname, os, os_version, runtime_version, cpu_model,
		 cpu_cores, memory_total_gb, gpu_available, gpu_model, additional_info, timestamp)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, m.PipelineRunID, m.Hostname, m.OS, m.OSVersion, m.RuntimeVersion, m.CPUModel, m.CPUCores,
		m.MemoryTotalGB, m.GPUAvailable, m.GPUModel, string(info), m.Timestamp)
	if err != nil {
		return "", persistence.NewQueryError("record system metric", err)
	}
	return id, nil
}

func (p *Provider) GetIngestionSummary(ctx context.Context, runID string, start, end *time.Time) (*model.IngestionSummary, error) {
	where := "WHERE 1=1"
	args := []any{}
	if runID != "" {
		where += " AND pipeline_run_id = ?"
		args = append(args, runID)
	}
	if start != nil {
		where += " AND timestamp >= ?"
		args = append(args, *start)
	}
	if end != nil {
		where += " AND timestamp <= ?"
		args = append(args, *end)
	}

	summary := &model.IngestionSummary{ErrorBreakdown: map[string]int64{}}

	var total, successful, failed, skipped int64
	var avgTime sql.NullFloat64
	var totalBytes sql.NullInt64
	row := p.db.QueryRowxContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*),
		 COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN status = 'failure' THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0),
		 AVG(processing_time_ms),
		 SUM(record_size_bytes)
		 FROM ingestion_stats %s`, where), args...)
	if err := row.Scan(&total, &successful, &failed, &skipped, &avgTime, &totalBytes); err != nil {
		return nil, persistence.NewQueryError("get ingestion summary", err)
	}
	summary.Total, summary.Successful, summary.Failed, summary.Skipped = total, successful, failed, skipped
	summary.AvgProcessingTimeMs = avgTime.Float64
	summary.TotalBytesProcessed = totalBytes.Int64

	rows, err := p.db.QueryxContext(ctx, fmt.Sprintf(
		`SELECT error_category, COUNT(*) FROM ingestion_stats %s AND error_category IS NOT NULL AND error_category != ''
		 GROUP BY error_category`, where), args...)
	if err != nil {
		return nil, persistence.NewQueryError("get ingestion error breakdown", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, persistence.NewQueryError("scan error breakdown", err)
		}
		summary.ErrorBreakdown[cat] = n
	}
	return summary, nil
}

func (p *Provider) GetQualitySummary(ctx context.Context, runID string) (*model.QualitySummary, error) {
	where := "WHERE 1=1"
	args := []any{}
	if runID != "" {
		where += " AND pipeline_run_id = ?"
		args = append(args, runID)
	}
	summary := &model.QualitySummary{}
	var total int64
	var avgC, avgCo, avgV, avgA, avgO, minO, maxO sql.NullFloat64
	row := p.db.QueryRowxContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*), AVG(completeness), AVG(consistency), AVG(validity), AVG(accuracy),
		 AVG(overall_score), MIN(overall_score), MAX(overall_score) FROM quality_metrics %s`, where), args...)
	if err := row.Scan(&total, &avgC, &avgCo, &avgV, &avgA, &avgO, &minO, &maxO); err != nil {
		return nil, persistence.NewQueryError("get quality summary", err)
	}
	summary.Total = total
	summary.AvgCompleteness = avgC.Float64
	summary.AvgConsistency = avgCo.Float64
	summary.AvgValidity = avgV.Float64
	summary.AvgAccuracy = avgA.Float64
	summary.AvgOverall = avgO.Float64
	summary.MinOverall = minO.Float64
	summary.MaxOverall = maxO.Float64
	return summary, nil
}

func (p *Provider) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, persistence.NewTransactionError("begin cleanup", err)
	}
	defer tx.Rollback()

	var total int64
	// children before parents, per spec's cascade ordering.
	for _, stmt := range []string{
		`DELETE FROM failed_records WHERE ingestion_stat_id IN (SELECT id FROM ingestion_stats WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?))`,
		`DELETE FROM ingestion_stats WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)`,
		`DELETE FROM quality_metrics WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)`,
		`DELETE FROM audit_events WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)`,
		`DELETE FROM performance_metrics WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)`,
		`DELETE FROM system_metrics WHERE pipeline_run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)`,
		`DELETE FROM pipeline_runs WHERE started_at < ?`,
	} {
		res, err := tx.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return 0, persistence.NewQueryError("cleanup old data", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, persistence.NewTransactionError("commit cleanup", err)
	}
	return total, nil
}

func (p *Provider) IsPathBookmarked(ctx context.Context, path string) (bool, error) {
	var dummy int
	err := p.db.GetContext(ctx, &dummy, `SELECT 1 FROM bookmarks WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, persistence.NewQueryError("check bookmark", err)
	}
	return true, nil
}

func (p *Provider) MarkPathBookmarked(ctx context.Context, path, status string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bookmarks (path, status, processed_at) VALUES (?, ?, ?)`,
		path, status, time.Now().UTC())
	if err != nil {
		return persistence.NewQueryError("mark bookmark", err)
	}
	return nil
}

func (p *Provider) AllBookmarkedPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := p.db.SelectContext(ctx, &paths, `SELECT path FROM bookmarks ORDER BY path`)
	if err != nil {
		return nil, persistence.NewQueryError("list bookmarks", err)
	}
	return paths, nil
}

func (p *Provider) ClearBookmarks(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bookmarks`)
	if err != nil {
		return 0, persistence.NewQueryError("clear bookmarks", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

var _ persistence.Provider = (*Provider)(nil)
