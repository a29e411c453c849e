// Package docstore implements persistence.Provider as an in-process
// document engine: mutex-guarded collections of documents addressed by the
// same {collection, operation, filter, update} shape spec.md describes a
// document-style provider executing, rather than emitting SQL.
//
// No document-database driver appears anywhere in the retrieved example
// pack (see DESIGN.md), so this engine is implemented directly rather than
// wiring a fabricated client behind a replace directive. It still satisfies
// the identical persistence.Provider contract the sqlite engine does, so
// callers never know which backend they're talking to.
package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsepipe/ingest/internal/persistence"
	"github.com/pulsepipe/ingest/internal/tracking/model"
)

// Provider is an in-memory document-store persistence.Provider. It is
// useful as a zero-dependency engine for tests and for deployments that
// don't need durability across process restarts.
type Provider struct {
	mu          sync.RWMutex
	connected   bool
	inTx        bool

	pipelineRuns      map[string]model.PipelineRun
	ingestionStats    map[string]model.IngestionStat
	failedRecords     map[string]model.FailedRecord
	qualityMetrics    map[string]model.QualityMetric
	auditEvents       map[string]model.AuditEvent
	performanceMetrics []model.PerformanceMetric
	systemMetrics     []model.SystemMetric
	bookmarks         map[string]model.Bookmark
}

// New constructs an empty document-store Provider.
func New() *Provider {
	return &Provider{
		pipelineRuns:   map[string]model.PipelineRun{},
		ingestionStats: map[string]model.IngestionStat{},
		failedRecords:  map[string]model.FailedRecord{},
		qualityMetrics: map[string]model.QualityMetric{},
		auditEvents:    map[string]model.AuditEvent{},
		bookmarks:      map[string]model.Bookmark{},
	}
}

func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *Provider) HealthCheck(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *Provider) InitializeSchema(ctx context.Context) error {
	// Document collections are schemaless; nothing to migrate.
	return nil
}

func (p *Provider) SupportsFeature(name string) bool {
	switch name {
	case persistence.FeatureTransactions:
		return false
	case persistence.FeatureJSONExtract:
		return true
	case persistence.FeatureFullTextSearch:
		return false
	default:
		return false
	}
}

// docTx is a best-effort transaction: document collections have no native
// multi-document atomicity here, so Transaction only guards against
// concurrent nested calls and otherwise commits immediately.
type docTx struct{ p *Provider }

func (t *docTx) Commit() error   { t.p.mu.Lock(); t.p.inTx = false; t.p.mu.Unlock(); return nil }
func (t *docTx) Rollback() error { t.p.mu.Lock(); t.p.inTx = false; t.p.mu.Unlock(); return nil }

func (p *Provider) Transaction(ctx context.Context) (persistence.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inTx {
		return nil, persistence.ErrNestedTransaction
	}
	p.inTx = true
	return &docTx{p: p}, nil
}

func (p *Provider) StartPipelineRun(ctx context.Context, id, name, configSnapshot string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pipelineRuns[id] = model.PipelineRun{
		ID:             id,
		Name:           name,
		StartedAt:      time.Now().UTC(),
		Status:         model.RunStatusRunning,
		ConfigSnapshot: configSnapshot,
	}
	return nil
}

func (p *Provider) CompletePipelineRun(ctx context.Context, id string, status model.RunStatus, errMsg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	run, ok := p.pipelineRuns[id]
	if !ok || run.Status.IsTerminal() {
		return nil
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = status
	run.ErrorMessage = errMsg
	p.pipelineRuns[id] = run
	return nil
}

func (p *Provider) UpdatePipelineRunCounts(ctx context.Context, id string, dTotal, dSuccessful, dFailed, dSkipped int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	run, ok := p.pipelineRuns[id]
	if !ok || run.Status.IsTerminal() {
		return nil
	}
	run.TotalRecords += dTotal
	run.Successful += dSuccessful
	run.Failed += dFailed
	run.Skipped += dSkipped
	p.pipelineRuns[id] = run
	return nil
}

func (p *Provider) GetPipelineRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	run, ok := p.pipelineRuns[id]
	if !ok {
		return nil, persistence.ErrUnknownPipelineRun
	}
	out := run
	return &out, nil
}

func (p *Provider) GetRecentPipelineRuns(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	runs := make([]model.PipelineRun, 0, len(p.pipelineRuns))
	for _, r := range p.pipelineRuns {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (p *Provider) RecordIngestionStat(ctx context.Context, s model.IngestionStat) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	p.ingestionStats[s.ID] = s
	return s.ID, nil
}

func (p *Provider) RecordFailedRecord(ctx context.Context, statID, original, reason, normalized, stack string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.failedRecords[id] = model.FailedRecord{
		ID:              id,
		IngestionStatID: statID,
		OriginalData:    original,
		NormalizedData:  normalized,
		FailureReason:   reason,
		StackTrace:      stack,
	}
	return id, nil
}

func (p *Provider) RecordQualityMetric(ctx context.Context, m model.QualityMetric) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	p.qualityMetrics[m.ID] = m
	return m.ID, nil
}

func (p *Provider) RecordAuditEvent(ctx context.Context, e model.AuditEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	p.auditEvents[e.ID] = e
	return e.ID, nil
}

func (p *Provider) RecordPerformanceMetric(ctx context.Context, m model.PerformanceMetric) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.performanceMetrics = append(p.performanceMetrics, m)
	return id, nil
}

func (p *Provider) RecordSystemMetric(ctx context.Context, m model.SystemMetric) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	p.systemMetrics = append(p.systemMetrics, m)
	return id, nil
}

func (p *Provider) GetIngestionSummary(ctx context.Context, runID string, start, end *time.Time) (*model.IngestionSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary := &model.IngestionSummary{ErrorBreakdown: map[string]int64{}}
	var durSum time.Duration
	var durCount int64
	for _, s := range p.ingestionStats {
		if runID != "" && s.PipelineRunID != runID {
			continue
		}
		if start != nil && s.Timestamp.Before(*start) {
			continue
		}
		if end != nil && s.Timestamp.After(*end) {
			continue
		}
		summary.Total++
		switch s.Status {
		case model.RecordStatusSuccess:
			summary.Successful++
		case model.RecordStatusFailure:
			summary.Failed++
		case model.RecordStatusSkipped:
			summary.Skipped++
		}
		if s.ErrorCategory != "" {
			summary.ErrorBreakdown[s.ErrorCategory]++
		}
		durSum += s.ProcessingTime
		durCount++
		summary.TotalBytesProcessed += s.RecordSizeBytes
	}
	if durCount > 0 {
		summary.AvgProcessingTimeMs = float64(durSum.Milliseconds()) / float64(durCount)
	}
	return summary, nil
}

func (p *Provider) GetQualitySummary(ctx context.Context, runID string) (*model.QualitySummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary := &model.QualitySummary{}
	var sumC, sumCo, sumV, sumA, sumOverall float64
	first := true
	for _, m := range p.qualityMetrics {
		if runID != "" && m.PipelineRunID != runID {
			continue
		}
		summary.Total++
		sumC += m.Completeness
		sumCo += m.Consistency
		sumV += m.Validity
		sumA += m.Accuracy
		sumOverall += m.OverallScore
		if first {
			summary.MinOverall, summary.MaxOverall = m.OverallScore, m.OverallScore
			first = false
		} else {
			if m.OverallScore < summary.MinOverall {
				summary.MinOverall = m.OverallScore
			}
			if m.OverallScore > summary.MaxOverall {
				summary.MaxOverall = m.OverallScore
			}
		}
	}
	if summary.Total > 0 {
		n := float64(summary.Total)
		summary.AvgCompleteness = sumC / n
		summary.AvgConsistency = sumCo / n
		summary.AvgValidity = sumV / n
		summary.AvgAccuracy = sumA / n
		summary.AvgOverall = sumOverall / n
	}
	return summary, nil
}

func (p *Provider) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	var removed int64

	stale := map[string]bool{}
	for id, run := range p.pipelineRuns {
		if run.StartedAt.Before(cutoff) {
			stale[id] = true
			delete(p.pipelineRuns, id)
			removed++
		}
	}
	for id, s := range p.ingestionStats {
		if stale[s.PipelineRunID] {
			delete(p.ingestionStats, id)
			removed++
		}
	}
	for id, f := range p.failedRecords {
		if _, ok := p.ingestionStats[f.IngestionStatID]; !ok {
			delete(p.failedRecords, id)
			removed++
		}
	}
	for id, m := range p.qualityMetrics {
		if stale[m.PipelineRunID] {
			delete(p.qualityMetrics, id)
			removed++
		}
	}
	for id, e := range p.auditEvents {
		if stale[e.PipelineRunID] {
			delete(p.auditEvents, id)
			removed++
		}
	}
	keepPerf := p.performanceMetrics[:0]
	for _, m := range p.performanceMetrics {
		if stale[m.PipelineRunID] {
			removed++
			continue
		}
		keepPerf = append(keepPerf, m)
	}
	p.performanceMetrics = keepPerf

	keepSys := p.systemMetrics[:0]
	for _, m := range p.systemMetrics {
		if stale[m.PipelineRunID] {
			removed++
			continue
		}
		keepSys = append(keepSys, m)
	}
	p.systemMetrics = keepSys

	return removed, nil
}

func (p *Provider) IsPathBookmarked(ctx context.Context, path string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.bookmarks[path]
	return ok, nil
}

func (p *Provider) MarkPathBookmarked(ctx context.Context, path, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bookmarks[path]; ok {
		return nil // insert-or-ignore semantics
	}
	p.bookmarks[path] = model.Bookmark{Path: path, Status: status, ProcessedAt: time.Now().UTC()}
	return nil
}

func (p *Provider) AllBookmarkedPaths(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	paths := make([]string, 0, len(p.bookmarks))
	for path := range p.bookmarks {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Provider) ClearBookmarks(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := int64(len(p.bookmarks))
	p.bookmarks = map[string]model.Bookmark{}
	return n, nil
}

var _ persistence.Provider = (*Provider)(nil)
