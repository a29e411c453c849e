// Package tracking is the one façade through which the rest of the
// pipeline talks to persistence: stage trackers, the audit logger, the
// quality engine, and the bookmark store all go through a Repository
// rather than holding a persistence.Provider directly, per spec.md §4.3.
package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pulsepipe/ingest/internal/persistence"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// Repository wraps a persistence.Provider with the typed operations every
// other component needs, so call sites never construct Row maps or know
// which backend is live.
type Repository struct {
	provider persistence.Provider
}

// New wraps an already-connected Provider.
func New(provider persistence.Provider) *Repository {
	return &Repository{provider: provider}
}

// Connect opens the underlying provider and ensures its schema exists.
func (r *Repository) Connect(ctx context.Context) error {
	if err := r.provider.Connect(ctx); err != nil {
		return err
	}
	return r.provider.InitializeSchema(ctx)
}

func (r *Repository) Close(ctx context.Context) error {
	return r.provider.Disconnect(ctx)
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	return r.provider.HealthCheck(ctx)
}

// StartRun begins a new PipelineRun and returns its generated id.
func (r *Repository) StartRun(ctx context.Context, name string, config map[string]any) (string, error) {
	id := uuid.NewString()
	snapshot := ""
	if config != nil {
		b, err := json.Marshal(config)
		if err == nil {
			snapshot = string(b)
		}
	}
	if err := r.provider.StartPipelineRun(ctx, id, name, snapshot); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	return r.provider.CompletePipelineRun(ctx, runID, status, errMsg)
}

func (r *Repository) IncrementRunCounts(ctx context.Context, runID string, total, successful, failed, skipped int64) error {
	return r.provider.UpdatePipelineRunCounts(ctx, runID, total, successful, failed, skipped)
}

func (r *Repository) GetRun(ctx context.Context, runID string) (*model.PipelineRun, error) {
	return r.provider.GetPipelineRun(ctx, runID)
}

func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	return r.provider.GetRecentPipelineRuns(ctx, limit)
}

// RecordOutcome records one record-processing attempt and, on failure,
// links a FailedRecord for forensic replay.
func (r *Repository) RecordOutcome(ctx context.Context, stat model.IngestionStat, originalData string) (string, error) {
	id, err := r.provider.RecordIngestionStat(ctx, stat)
	if err != nil {
		return "", err
	}
	if stat.Status == model.RecordStatusFailure && originalData != "" {
		if _, err := r.provider.RecordFailedRecord(ctx, id, originalData, stat.ErrorMessage, "", stat.ErrorDetails); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *Repository) RecordQuality(ctx context.Context, m model.QualityMetric) (string, error) {
	return r.provider.RecordQualityMetric(ctx, m)
}

func (r *Repository) RecordAudit(ctx context.Context, e model.AuditEvent) (string, error) {
	return r.provider.RecordAuditEvent(ctx, e)
}

func (r *Repository) RecordPerformance(ctx context.Context, m model.PerformanceMetric) (string, error) {
	return r.provider.RecordPerformanceMetric(ctx, m)
}

func (r *Repository) RecordSystem(ctx context.Context, m model.SystemMetric) (string, error) {
	return r.provider.RecordSystemMetric(ctx, m)
}

func (r *Repository) IngestionSummary(ctx context.Context, runID string, start, end *time.Time) (*model.IngestionSummary, error) {
	return r.provider.GetIngestionSummary(ctx, runID, start, end)
}

func (r *Repository) QualitySummary(ctx context.Context, runID string) (*model.QualitySummary, error) {
	return r.provider.GetQualitySummary(ctx, runID)
}

func (r *Repository) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	return r.provider.CleanupOldData(ctx, daysToKeep)
}

func (r *Repository) IsPathBookmarked(ctx context.Context, path string) (bool, error) {
	return r.provider.IsPathBookmarked(ctx, path)
}

func (r *Repository) MarkPathBookmarked(ctx context.Context, path, status string) error {
	return r.provider.MarkPathBookmarked(ctx, path, status)
}

func (r *Repository) AllBookmarkedPaths(ctx context.Context) ([]string, error) {
	return r.provider.AllBookmarkedPaths(ctx)
}

func (r *Repository) ClearBookmarks(ctx context.Context) (int64, error) {
	return r.provider.ClearBookmarks(ctx)
}

// RecordOutcomeAsync satisfies stage.Persister: stage trackers call into
// the repository without holding up the hot path, and persistence errors
// are swallowed here rather than propagated, per spec.md §4.5/§7 — a
// tracker must tolerate a partially unavailable backend.
func (r *Repository) RecordOutcomeAsync(stageName, recordID, status, errorCategory, errorMessage string) {
	go func() {
		_, _ = r.provider.RecordIngestionStat(context.Background(), model.IngestionStat{
			StageName:     stageName,
			RecordID:      recordID,
			Status:        model.RecordStatus(status),
			ErrorCategory: errorCategory,
			ErrorMessage:  errorMessage,
			Timestamp:     time.Now().UTC(),
		})
	}()
}
