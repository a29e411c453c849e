// Package pipectx holds the per-run state a pipeline invocation threads
// through every stage: config, identity, telemetry collaborators, and
// the accumulated errors/warnings/executed-stage list a CLI reports at
// the end. Grounded on the teacher's UnifiedBusinessConfig composition
// idiom in engine/config/unified_config.go (one struct holding every
// cross-cutting collaborator plus metadata, with defaulting and a
// validate pass) and on engine/internal/pipeline/pipeline.go's
// stage-status bookkeeping (executed-stage list, per-stage start/end).
package pipectx

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pulsepipe/ingest/internal/audit"
	"github.com/pulsepipe/ingest/internal/classify"
	"github.com/pulsepipe/ingest/internal/perf"
	"github.com/pulsepipe/ingest/internal/pipeline"
	"github.com/pulsepipe/ingest/internal/tracking"
	"github.com/pulsepipe/ingest/internal/tracking/stage"
)

// StageError pairs a classified failure with the stage that raised it.
type StageError struct {
	Stage     string
	Error     classify.ClassifiedError
	Timestamp time.Time
}

// DisplayFlags are the CLI-facing presentation toggles; the executor,
// the trackers, ExportResults and Summary all ignore them.
type DisplayFlags struct {
	Summary    bool
	PrintModel bool
	Pretty     bool
	Verbose    bool
}

// Context is the per-run bundle of config, identity and telemetry
// collaborators passed to the executor and every stage constructor.
type Context struct {
	PipelineID string
	Name       string
	OutputPath string
	Config     map[string]any
	Display    DisplayFlags

	Audit      *audit.Logger
	Repository *tracking.Repository
	Ingestion  *stage.Tracker[stage.IngestionDomain]
	Chunking   *stage.Tracker[stage.ChunkingDomain]
	Embedding  *stage.Tracker[stage.EmbeddingDomain]
	Quality    *stage.Tracker[stage.QualityDomain]
	Performance *perf.PipelineTracker

	enabledStages map[string]bool

	mu             sync.Mutex
	errors         []StageError
	warnings       []string
	executedStages []string
	stageStarts    map[string]time.Time
}

// New constructs a Context for one pipeline run. enabledStages lists
// every stage name this run should execute; any stage not present is
// treated as disabled by IsStageEnabled.
func New(pipelineID, name, outputPath string, cfg map[string]any, enabledStages []string) *Context {
	enabled := make(map[string]bool, len(enabledStages))
	for _, s := range enabledStages {
		enabled[s] = true
	}
	return &Context{
		PipelineID:    pipelineID,
		Name:          name,
		OutputPath:    outputPath,
		Config:        cfg,
		enabledStages: enabled,
		stageStarts:   make(map[string]time.Time),
	}
}

// IsStageEnabled reports whether name was included in this run's stage
// list at construction time.
func (c *Context) IsStageEnabled(name string) bool {
	return c.enabledStages[name]
}

// dependencyEdges lists, for each stage in the fixed ingestion -> deid?
// -> chunking -> embedding -> vectorstore graph, the upstream stages of
// which at least one must be enabled for that stage to have real input.
// chunking accepts input from either deid or ingestion directly, since
// de-identification is optional.
var dependencyEdges = map[string][]string{
	"deid":        {"ingestion"},
	"chunking":    {"deid", "ingestion"},
	"embedding":   {"chunking"},
	"vectorstore": {"embedding"},
}

// CheckDependencies inspects this run's enabled stage set against
// dependencyEdges and records a warning for every enabled stage whose
// entire upstream is disabled, per spec.md §4.12's "resolve enabled
// stages from context; warn on dependency gaps ... but do not fail."
// Call it once every stage the run intends to execute has been
// registered via New's enabledStages.
func (c *Context) CheckDependencies() {
	for _, name := range sortedDependencyStages() {
		if !c.IsStageEnabled(name) {
			continue
		}
		upstream := dependencyEdges[name]
		satisfied := false
		for _, up := range upstream {
			if c.IsStageEnabled(up) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			c.AddWarning(fmt.Sprintf("dependency gap: %s enabled without %s", name, strings.Join(upstream, " or ")))
		}
	}
}

// sortedDependencyStages returns dependencyEdges' keys in the graph's
// natural order, so CheckDependencies reports gaps deterministically.
func sortedDependencyStages() []string {
	return []string{"deid", "chunking", "embedding", "vectorstore"}
}

// StartStage marks name's start time and, if an audit logger is
// attached, logs it. Calling StartStage twice for the same name resets
// its start time; EndStage uses the latest call.
func (c *Context) StartStage(name string) {
	c.mu.Lock()
	c.stageStarts[name] = time.Now()
	c.mu.Unlock()

	if c.Audit != nil {
		c.Audit.LogPipelineStarted(name)
	}
}

// EndStage records name as executed and, if an audit logger is
// attached, logs its elapsed time through it.
func (c *Context) EndStage(name string) {
	c.mu.Lock()
	started, ok := c.stageStarts[name]
	c.executedStages = append(c.executedStages, name)
	c.mu.Unlock()

	if !ok {
		return
	}
	elapsed := time.Since(started)
	if c.Audit != nil {
		c.Audit.LogPerformanceMetric(name, elapsed.Milliseconds())
	}
}

// AddError classifies err against stageName and records it, logging to
// the audit trail if one is attached.
func (c *Context) AddError(stageName string, err error) {
	classified := classify.Classify(err, stageName, "", nil)
	c.mu.Lock()
	c.errors = append(c.errors, StageError{Stage: stageName, Error: classified, Timestamp: classified.Timestamp})
	c.mu.Unlock()

	if c.Audit != nil {
		c.Audit.LogStageFailed(stageName, err)
	}
}

// AddWarning records a run-level warning not tied to a classified error.
func (c *Context) AddWarning(message string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, message)
	c.mu.Unlock()

	if c.Audit != nil {
		c.Audit.LogWarning(c.Name, message)
	}
}

// Errors returns a snapshot of every AddError call so far.
func (c *Context) Errors() []StageError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StageError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Warnings returns a snapshot of every AddWarning call so far.
func (c *Context) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// ExecutedStages returns every stage name passed to EndStage so far, in
// call order (duplicates included, since a stage can retry within a run).
func (c *Context) ExecutedStages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.executedStages))
	copy(out, c.executedStages)
	return out
}

// RunSummary is the terminal report ExportResults and Summary produce.
type RunSummary struct {
	PipelineID     string               `json:"pipeline_id"`
	Name           string               `json:"name"`
	Status         string               `json:"status"`
	Duration       time.Duration        `json:"duration"`
	RecordCount    int                  `json:"record_count"`
	ExecutedStages []string             `json:"executed_stages"`
	Errors         []StageError         `json:"errors"`
	Warnings       []string             `json:"warnings"`
}

// Summary composes RunSummary from the executor's RunResult plus this
// context's accumulated errors/warnings/executed-stage history.
func (c *Context) Summary(result pipeline.RunResult) RunSummary {
	return RunSummary{
		PipelineID:     c.PipelineID,
		Name:           c.Name,
		Status:         result.Status,
		Duration:       result.Duration,
		RecordCount:    len(result.Results),
		ExecutedStages: c.ExecutedStages(),
		Errors:         c.Errors(),
		Warnings:       c.Warnings(),
	}
}

// stageTrackerAdapter satisfies pipeline.Tracker over a
// tracking/stage.Tracker[D], translating the executor's plain
// success/failure calls into the stage tracker's domain-aware ones.
// Domain-specific counters (bytes ingested, chunk sizes) aren't visible
// at this layer; a stage wanting to populate them calls the underlying
// Tracker[D] directly instead of going through Executor.WithTracker.
type stageTrackerAdapter[D any] struct {
	t *stage.Tracker[D]
}

func (a stageTrackerAdapter[D]) RecordSuccess(recordID string, processingTime time.Duration) {
	a.t.RecordSuccess(recordID, processingTime, nil)
}

func (a stageTrackerAdapter[D]) RecordFailure(recordID string, processingTime time.Duration, classified classify.ClassifiedError) {
	a.t.RecordFailure(recordID, string(classified.Analysis.Category), classified.Message)
}

// TrackerFor wraps a tracking/stage.Tracker[D] as a pipeline.Tracker,
// for use with Executor.WithTracker.
func TrackerFor[D any](t *stage.Tracker[D]) pipeline.Tracker {
	return stageTrackerAdapter[D]{t: t}
}

// ErrUnsupportedExportFormat is returned by ExportResults for any format
// other than "json", "csv" or "html".
var ErrUnsupportedExportFormat = fmt.Errorf("pipectx: unsupported export format")

// ExportResults writes result's summary to w in the given format. json
// is a single array-wrapped object (for consistency with the other
// exporters' "JSON array" convention even though there is one run per
// export); csv is a summary header row, a blank line, then one row per
// error; html is a single self-contained report page, grounded on the
// teacher's hand-built html/template.HTMLEscapeString + strings.Builder
// document style in engine/internal/output/html/template.go rather than
// a parsed template file, since the report has no repeating page
// collection to range over.
func (c *Context) ExportResults(result pipeline.RunResult, format string, w io.Writer) error {
	summary := c.Summary(result)
	switch format {
	case "json":
		return exportJSON(summary, w)
	case "csv":
		return exportCSV(summary, w)
	case "html":
		return exportHTML(summary, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedExportFormat, format)
	}
}
