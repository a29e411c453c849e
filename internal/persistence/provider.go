// Package persistence defines the engine-agnostic contract that lets the
// tracking substrate run on either a relational or a document backend
// behind one interface. Callers outside this package and internal/bookmark
// should not depend on a concrete Provider — go through internal/tracking.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// Row is a single result row, keyed by column/field name.
type Row map[string]any

// ExecResult bundles the rows (for reads), the engine-assigned id (for
// inserts, when applicable), and the affected row count. The Provider
// methods below return typed values and do not use it.
type ExecResult struct {
	Rows      []Row
	LastID    string
	RowCount  int64
}

// Feature names queryable via Provider.SupportsFeature, per DN-8: higher
// layers ask the provider instead of branching on engine type.
const (
	FeatureTransactions    = "transactions"
	FeatureJSONExtract     = "json_extract"
	FeatureFullTextSearch  = "full_text_search"
)

// Tx is a scoped transaction handle. Nested calls to Provider.Transaction on
// the same connection are disallowed.
type Tx interface {
	Commit() error
	Rollback() error
}

// Provider is the unified CRUD/analytics contract over a relational or
// document backend, per spec §4.1.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	HealthCheck(ctx context.Context) bool
	InitializeSchema(ctx context.Context) error
	SupportsFeature(name string) bool
	Transaction(ctx context.Context) (Tx, error)

	StartPipelineRun(ctx context.Context, id, name, configSnapshot string) error
	CompletePipelineRun(ctx context.Context, id string, status model.RunStatus, errMsg string) error
	UpdatePipelineRunCounts(ctx context.Context, id string, dTotal, dSuccessful, dFailed, dSkipped int64) error
	GetPipelineRun(ctx context.Context, id string) (*model.PipelineRun, error)
	GetRecentPipelineRuns(ctx context.Context, limit int) ([]model.PipelineRun, error)

	RecordIngestionStat(ctx context.Context, s model.IngestionStat) (string, error)
	RecordFailedRecord(ctx context.Context, statID, original, reason, normalized, stack string) (string, error)
	RecordQualityMetric(ctx context.Context, m model.QualityMetric) (string, error)
	RecordAuditEvent(ctx context.Context, e model.AuditEvent) (string, error)
	RecordPerformanceMetric(ctx context.Context, m model.PerformanceMetric) (string, error)
	RecordSystemMetric(ctx context.Context, m model.SystemMetric) (string, error)

	GetIngestionSummary(ctx context.Context, runID string, start, end *time.Time) (*model.IngestionSummary, error)
	GetQualitySummary(ctx context.Context, runID string) (*model.QualitySummary, error)

	CleanupOldData(ctx context.Context, daysToKeep int) (int64, error)

	// IsPathBookmarked and MarkPathBookmarked back the repository-backed
	// bookmark store (internal/bookmark), for deployments that want file
	// dedup state to live alongside the rest of the tracking data rather
	// than in a separate sqlite file.
	IsPathBookmarked(ctx context.Context, path string) (bool, error)
	MarkPathBookmarked(ctx context.Context, path, status string) error
	AllBookmarkedPaths(ctx context.Context) ([]string, error)
	ClearBookmarks(ctx context.Context) (int64, error)
}

// DatabaseError is the common interface every persistence error implements,
// per spec §4.1/§7: connection loss, malformed operations, and transaction
// aborts are distinct, recognizable error kinds.
type DatabaseError interface {
	error
	Unwrap() error
	Kind() string
}

type baseDBError struct {
	kind string
	msg  string
	err  error
}

func (e *baseDBError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}
func (e *baseDBError) Unwrap() error { return e.err }
func (e *baseDBError) Kind() string  { return e.kind }

// NewConnectionError wraps a transport/connectivity failure.
func NewConnectionError(msg string, err error) DatabaseError {
	return &baseDBError{kind: "ConnectionError", msg: msg, err: err}
}

// NewQueryError wraps a malformed-operation failure.
func NewQueryError(msg string, err error) DatabaseError {
	return &baseDBError{kind: "QueryError", msg: msg, err: err}
}

// NewTransactionError wraps a transaction-abort failure.
func NewTransactionError(msg string, err error) DatabaseError {
	return &baseDBError{kind: "TransactionError", msg: msg, err: err}
}

// NewNotSupportedError wraps a feature request the provider cannot serve.
func NewNotSupportedError(msg string) DatabaseError {
	return &baseDBError{kind: "NotSupportedError", msg: msg}
}

// ErrNestedTransaction is returned by Transaction when one is already open
// on the connection — per spec §4.1, one transaction per connection.
var ErrNestedTransaction = errors.New("persistence: nested transaction not allowed on this connection")

// ErrUnknownPipelineRun is returned by GetPipelineRun for an unknown id.
var ErrUnknownPipelineRun = errors.New("persistence: unknown pipeline run")
