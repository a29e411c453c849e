// Package perf implements the per-pipeline performance tracker (C6):
// ordered step timings, derived throughput, and bottleneck analysis.
// Grounded on the teacher's promTimer pattern in
// engine/telemetry/metrics/prometheus.go, generalized from one HTTP
// request timer to an ordered sequence of pipeline steps.
package perf

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const maxStepHistory = 100

// StepMetrics is one step's timing and throughput record.
type StepMetrics struct {
	StepName         string            `json:"step_name"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`
	DurationMs       int64             `json:"duration_ms"`
	RecordsProcessed int64             `json:"records_processed"`
	BytesProcessed   int64             `json:"bytes_processed"`
	SuccessCount     int64             `json:"success_count"`
	FailureCount     int64             `json:"failure_count"`
	RecordsPerSecond float64           `json:"records_per_second"`
	BytesPerSecond   float64           `json:"bytes_per_second"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

// FailureRate is failures / (success+failures) as a fraction in [0,1].
func (s StepMetrics) FailureRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(total)
}

func (s *StepMetrics) finish() {
	now := time.Now().UTC()
	s.EndTime = &now
	s.DurationMs = now.Sub(s.StartTime).Milliseconds()
	seconds := now.Sub(s.StartTime).Seconds()
	if seconds > 0 {
		s.RecordsPerSecond = float64(s.RecordsProcessed) / seconds
		s.BytesPerSecond = float64(s.BytesProcessed) / seconds
	}
}

// Bottleneck identifies one step flagged as a likely pipeline bottleneck.
type Bottleneck struct {
	StepName string  `json:"step_name"`
	Reason   string  `json:"reason"`
	SharePct float64 `json:"share_pct"`
}

// BottleneckAnalysis ranks the slowest/highest-failure steps and
// synthesizes recommendations.
type BottleneckAnalysis struct {
	Bottlenecks     []Bottleneck `json:"bottlenecks"`
	SlowestSteps    []string     `json:"slowest_steps"`
	HighFailureSteps []string    `json:"high_failure_steps"`
	Recommendations []string     `json:"recommendations"`
}

// PipelineMetrics is the finished aggregate over all recorded steps.
type PipelineMetrics struct {
	Steps              []StepMetrics `json:"steps"`
	TotalDurationMs    int64         `json:"total_duration_ms"`
	AvgRecordsPerSecond float64      `json:"avg_records_per_second"`
	Bottlenecks        BottleneckAnalysis `json:"bottlenecks"`
}

// PipelineTracker serializes all step timing for one pipeline run behind
// a single mutex — per spec.md §4.6/§9, concurrent StartStep/FinishStep
// calls from multiple workers must never interleave into a split step.
type PipelineTracker struct {
	mu      sync.Mutex
	steps   []StepMetrics
	current map[string]*StepMetrics
}

// NewPipelineTracker constructs an empty tracker.
func NewPipelineTracker() *PipelineTracker {
	return &PipelineTracker{current: map[string]*StepMetrics{}}
}

// StartStep begins timing stepName. A step already in flight under the
// same name is implicitly finished first (guards against a missed
// FinishStep leaking an open step forever).
func (t *PipelineTracker) StartStep(stepName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.current[stepName]; ok {
		t.finishLocked(existing)
	}
	t.current[stepName] = &StepMetrics{StepName: stepName, StartTime: time.Now().UTC()}
}

// FinishStep completes the in-flight step, recording its outcome counts.
func (t *PipelineTracker) FinishStep(stepName string, recordsProcessed, bytesProcessed, successCount, failureCount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	step, ok := t.current[stepName]
	if !ok {
		return
	}
	step.RecordsProcessed = recordsProcessed
	step.BytesProcessed = bytesProcessed
	step.SuccessCount = successCount
	step.FailureCount = failureCount
	t.finishLocked(step)
}

func (t *PipelineTracker) finishLocked(step *StepMetrics) {
	step.finish()
	t.steps = append(t.steps, *step)
	if len(t.steps) > maxStepHistory {
		t.steps = t.steps[len(t.steps)-maxStepHistory:]
	}
	delete(t.current, step.StepName)
}

// Finish computes the pipeline-level aggregate and bottleneck analysis
// over every recorded step, per spec.md §4.6's exact thresholds.
func (t *PipelineTracker) Finish() PipelineMetrics {
	t.mu.Lock()
	steps := make([]StepMetrics, len(t.steps))
	copy(steps, t.steps)
	t.mu.Unlock()

	metrics := PipelineMetrics{Steps: steps}
	var totalDuration int64
	var rateSum float64
	var rateN int
	for _, s := range steps {
		totalDuration += s.DurationMs
		if s.RecordsPerSecond > 0 {
			rateSum += s.RecordsPerSecond
			rateN++
		}
	}
	metrics.TotalDurationMs = totalDuration
	if rateN > 0 {
		metrics.AvgRecordsPerSecond = rateSum / float64(rateN)
	}
	metrics.Bottlenecks = analyzeBottlenecks(steps, totalDuration)
	return metrics
}

func analyzeBottlenecks(steps []StepMetrics, totalDuration int64) BottleneckAnalysis {
	analysis := BottleneckAnalysis{}
	if len(steps) == 0 {
		return analysis
	}

	var durationSum int64
	for _, s := range steps {
		durationSum += s.DurationMs
	}
	avgDuration := float64(durationSum) / float64(len(steps))

	for _, s := range steps {
		sharePct := 0.0
		if totalDuration > 0 {
			sharePct = 100 * float64(s.DurationMs) / float64(totalDuration)
		}
		switch {
		case sharePct >= 50:
			analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{s.StepName, "duration share >= 50%", sharePct})
		case sharePct >= 30 && float64(s.DurationMs) > 2*avgDuration:
			analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{s.StepName, "duration share >= 30% and > 2x average", sharePct})
		case s.FailureRate() >= 0.10:
			analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{s.StepName, "failure rate >= 10%", s.FailureRate() * 100})
		}
	}

	sorted := append([]StepMetrics(nil), steps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DurationMs > sorted[j].DurationMs })
	for i, s := range sorted {
		if i >= 3 {
			break
		}
		analysis.SlowestSteps = append(analysis.SlowestSteps, s.StepName)
	}

	for _, s := range steps {
		if s.FailureRate() >= 0.10 {
			analysis.HighFailureSteps = append(analysis.HighFailureSteps, s.StepName)
		}
	}

	for _, b := range analysis.Bottlenecks {
		if b.Reason == "failure rate >= 10%" {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("step %s failed %.0f%% of its records — investigate its errors", b.StepName, b.SharePct))
			continue
		}
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("step %s consumed %.0f%% of wall time — consider parallelizing or optimizing", b.StepName, b.SharePct))
	}
	return analysis
}
