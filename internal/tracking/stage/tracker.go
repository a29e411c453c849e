// Package stage implements the four parallel stage trackers (ingestion,
// chunking, embedding, quality) as one generic Tracker[D], where D carries
// whatever domain-specific counters a given stage cares about (bytes
// ingested, chunk sizes, embedding dimensions, quality scores-per-batch).
// Grounded on the teacher's updateStageMetrics bookkeeping in
// engine/internal/pipeline/pipeline.go, generalized to batches.
package stage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxCompletedBatches = 100

// Counters are the universal per-batch outcome counts every stage shares.
type Counters struct {
	Success        int64 `json:"success"`
	Failure        int64 `json:"failure"`
	Skipped        int64 `json:"skipped"`
	PartialSuccess int64 `json:"partial_success"`
}

// Total sums all outcomes recorded in the batch.
func (c Counters) Total() int64 {
	return c.Success + c.Failure + c.Skipped + c.PartialSuccess
}

// SuccessRate is success / total, as a percentage; zero when empty.
func (c Counters) SuccessRate() float64 {
	if c.Total() == 0 {
		return 0
	}
	return 100 * float64(c.Success) / float64(c.Total())
}

// FailureRate is failure / total, as a percentage; zero when empty.
func (c Counters) FailureRate() float64 {
	if c.Total() == 0 {
		return 0
	}
	return 100 * float64(c.Failure) / float64(c.Total())
}

// BatchMetrics is one batch's lifecycle and outcome record.
type BatchMetrics[D any] struct {
	BatchID      string         `json:"batch_id"`
	RunID        string         `json:"run_id"`
	Stage        string         `json:"stage"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Counters     Counters       `json:"counters"`
	ErrorHistogram map[string]int64 `json:"error_histogram"`
	Domain       D              `json:"domain"`

	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	RecordsPerSecond    float64 `json:"records_per_second"`

	totalProcessingTime time.Duration
	timedRecords        int64
}

// finish derives rate fields from the accumulated counters/timings.
func (b *BatchMetrics[D]) finish() {
	now := time.Now().UTC()
	b.CompletedAt = &now
	if b.timedRecords > 0 {
		b.AvgProcessingTimeMs = float64(b.totalProcessingTime.Milliseconds()) / float64(b.timedRecords)
	}
	if elapsed := now.Sub(b.StartedAt).Seconds(); elapsed > 0 {
		b.RecordsPerSecond = float64(b.Counters.Total()) / elapsed
	}
}

// Persister is the narrow slice of tracking.Repository a Tracker needs;
// satisfied by *tracking.Repository, kept as an interface here to avoid
// an import cycle (tracking doesn't need to know about stage trackers).
type Persister interface {
	RecordOutcomeAsync(stage, recordID, status, errorCategory, errorMessage string)
}

// Recommender derives human-readable recommendations from a Summary.
type Recommender[D any] func(Summary[D]) []string

// Tracker is a generic per-stage batch tracker.
type Tracker[D any] struct {
	mu sync.Mutex

	stageName   string
	runID       string
	persister   Persister
	recommend   Recommender[D]
	recordLevel bool
	logger      *zerolog.Logger

	current   *BatchMetrics[D]
	completed []BatchMetrics[D]
}

// New constructs a Tracker for one stage within one pipeline run.
func New[D any](stageName, runID string, persister Persister, recommend Recommender[D]) *Tracker[D] {
	return &Tracker[D]{
		stageName: stageName,
		runID:     runID,
		persister: persister,
		recommend: recommend,
	}
}

// EnableRecordLevelTracking toggles per-record mirroring to the tracking
// repository; off by default per spec.md §4.5's memory note.
func (t *Tracker[D]) EnableRecordLevelTracking(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordLevel = enabled
}

// WithLogger attaches a logger so a disabled tracker's Export no-op is
// observable instead of silent. Returns t for chaining at construction.
func (t *Tracker[D]) WithLogger(l zerolog.Logger) *Tracker[D] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = &l
	return t
}

// StartBatch replaces any prior current batch, moving it to completed.
func (t *Tracker[D]) StartBatch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotateCurrentLocked()
	t.current = &BatchMetrics[D]{
		BatchID:        id,
		RunID:          t.runID,
		Stage:          t.stageName,
		StartedAt:      time.Now().UTC(),
		ErrorHistogram: map[string]int64{},
	}
}

func (t *Tracker[D]) rotateCurrentLocked() {
	if t.current == nil {
		return
	}
	t.current.finish()
	t.completed = append(t.completed, *t.current)
	if len(t.completed) > maxCompletedBatches {
		t.completed = t.completed[len(t.completed)-maxCompletedBatches:]
	}
	t.current = nil
}

func (t *Tracker[D]) ensureBatchLocked() *BatchMetrics[D] {
	if t.current == nil {
		t.current = &BatchMetrics[D]{
			BatchID:        fmt.Sprintf("auto_batch_%d", time.Now().UnixNano()),
			RunID:          t.runID,
			Stage:          t.stageName,
			StartedAt:      time.Now().UTC(),
			ErrorHistogram: map[string]int64{},
		}
	}
	return t.current
}

// RecordSuccess records one successfully processed record, applying the
// given processing duration to the batch's running average.
func (t *Tracker[D]) RecordSuccess(recordID string, processingTime time.Duration, update func(*D)) {
	t.mu.Lock()
	b := t.ensureBatchLocked()
	b.Counters.Success++
	b.totalProcessingTime += processingTime
	b.timedRecords++
	if update != nil {
		update(&b.Domain)
	}
	t.mu.Unlock()

	if t.recordLevel && t.persister != nil {
		t.persister.RecordOutcomeAsync(t.stageName, recordID, "success", "", "")
	}
}

// RecordFailure records a failed record attempt.
func (t *Tracker[D]) RecordFailure(recordID, errorCategory, errorMessage string) {
	t.mu.Lock()
	b := t.ensureBatchLocked()
	b.Counters.Failure++
	if errorCategory != "" {
		b.ErrorHistogram[errorCategory]++
	}
	t.mu.Unlock()

	if t.persister != nil {
		t.persister.RecordOutcomeAsync(t.stageName, recordID, "failure", errorCategory, errorMessage)
	}
}

// RecordSkip records a record deliberately not processed.
func (t *Tracker[D]) RecordSkip(recordID, reason string) {
	t.mu.Lock()
	b := t.ensureBatchLocked()
	b.Counters.Skipped++
	t.mu.Unlock()

	if t.recordLevel && t.persister != nil {
		t.persister.RecordOutcomeAsync(t.stageName, recordID, "skipped", "", reason)
	}
}

// RecordPartialSuccess records a record that partly succeeded.
func (t *Tracker[D]) RecordPartialSuccess(recordID string, issues []string) {
	t.mu.Lock()
	b := t.ensureBatchLocked()
	b.Counters.PartialSuccess++
	t.mu.Unlock()

	if t.persister != nil {
		msg := ""
		if len(issues) > 0 {
			msg = issues[0]
		}
		t.persister.RecordOutcomeAsync(t.stageName, recordID, "partial_success", "", msg)
	}
}

// FinishBatch moves the current batch to completed, deriving its rates.
func (t *Tracker[D]) FinishBatch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotateCurrentLocked()
}

// TrackBatch is the scoped start/finish variant: it starts id, runs fn,
// and guarantees FinishBatch runs even if fn panics.
func (t *Tracker[D]) TrackBatch(id string, fn func()) {
	t.StartBatch(id)
	defer t.FinishBatch()
	fn()
}

// Summary aggregates across all batches, current included.
type Summary[D any] struct {
	Stage           string   `json:"stage"`
	BatchCount      int      `json:"batch_count"`
	Counters        Counters `json:"counters"`
	AvgProcessingMs float64  `json:"avg_processing_time_ms"`
	Recommendations []string `json:"recommendations"`
	Batches         []BatchMetrics[D] `json:"batches"`
}

// GetSummary aggregates across all batches (current included).
func (t *Tracker[D]) GetSummary() Summary[D] {
	t.mu.Lock()
	batches := make([]BatchMetrics[D], len(t.completed), len(t.completed)+1)
	copy(batches, t.completed)
	if t.current != nil {
		snap := *t.current
		snap.finish()
		batches = append(batches, snap)
	}
	t.mu.Unlock()

	summary := Summary[D]{Stage: t.stageName, BatchCount: len(batches), Batches: batches}
	var avgSum float64
	var avgN int
	for _, b := range batches {
		summary.Counters.Success += b.Counters.Success
		summary.Counters.Failure += b.Counters.Failure
		summary.Counters.Skipped += b.Counters.Skipped
		summary.Counters.PartialSuccess += b.Counters.PartialSuccess
		if b.AvgProcessingTimeMs > 0 {
			avgSum += b.AvgProcessingTimeMs
			avgN++
		}
	}
	if avgN > 0 {
		summary.AvgProcessingMs = avgSum / float64(avgN)
	}
	if t.recommend != nil {
		summary.Recommendations = t.recommend(summary)
	} else {
		summary.Recommendations = defaultRecommendations(summary)
	}
	return summary
}

func defaultRecommendations[D any](s Summary[D]) []string {
	if s.Counters.FailureRate() > 10 {
		return []string{"high failure rate"}
	}
	if s.AvgProcessingMs > 1000 {
		return []string{"slow processing"}
	}
	return []string{"healthy"}
}

// ErrUnsupportedExportFormat is returned by Export for any format other
// than "json" or "csv".
var ErrUnsupportedExportFormat = fmt.Errorf("stage: unsupported export format")

// Export writes the tracker's summary to w in the given format ("json" or
// "csv"). A disabled tracker (no batches ever started) is a no-op with a
// warning per spec.md §4.5 — the warning is logged if WithLogger attached
// a logger, and otherwise stays unobserved since Export still returns nil.
func (t *Tracker[D]) Export(format string, w io.Writer) error {
	summary := t.GetSummary()
	if summary.BatchCount == 0 {
		t.mu.Lock()
		logger := t.logger
		t.mu.Unlock()
		if logger != nil {
			logger.Warn().Str("stage", t.stageName).Msg("export skipped: tracker has no batches")
		}
		return nil
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "csv":
		return exportCSV(summary, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedExportFormat, format)
	}
}

func exportCSV[D any](summary Summary[D], w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"stage", "batch_count", "success", "failure", "skipped", "partial_success", "avg_processing_time_ms"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		summary.Stage,
		fmt.Sprintf("%d", summary.BatchCount),
		fmt.Sprintf("%d", summary.Counters.Success),
		fmt.Sprintf("%d", summary.Counters.Failure),
		fmt.Sprintf("%d", summary.Counters.Skipped),
		fmt.Sprintf("%d", summary.Counters.PartialSuccess),
		fmt.Sprintf("%.3f", summary.AvgProcessingMs),
	}); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Batch Details"); err != nil {
		return err
	}
	dw := csv.NewWriter(w)
	if err := dw.Write([]string{"batch_id", "started_at", "success", "failure", "skipped", "partial_success"}); err != nil {
		return err
	}
	for _, b := range summary.Batches {
		if err := dw.Write([]string{
			b.BatchID,
			b.StartedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", b.Counters.Success),
			fmt.Sprintf("%d", b.Counters.Failure),
			fmt.Sprintf("%d", b.Counters.Skipped),
			fmt.Sprintf("%d", b.Counters.PartialSuccess),
		}); err != nil {
			return err
		}
	}
	dw.Flush()
	return dw.Error()
}
