// Package pipeline runs the ingestion -> deid? -> chunking -> embedding
// -> vectorstore stage graph: one bounded channel and one worker
// goroutine per enabled stage, connected in sequence, with a shared
// cancellable context as the stop event and a pipeline-wide timeout.
// Grounded directly on the teacher's engine/internal/pipeline/pipeline.go
// (Pipeline.startStages, discoveryWorker/extractionWorker/
// processingWorker/outputWorker, the WaitGroup-per-stage shape, and
// channel-close sentinel propagation) with the four crawl stages
// replaced by the healthcare stage graph and the retry/rate-limit
// machinery replaced by per-record error classification. The ingestion
// worker keeps the teacher's discoveryWorker property of reading from
// something other than a prior stage's output — there it was an
// externally-fed p.urlQueue, here it is a caller-supplied SourceFunc —
// so it has no input channel of its own and streams whatever it
// produces straight to the first transform stage as it goes, rather
// than requiring every record up front.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pulsepipe/ingest/internal/classify"
)

// Record is one unit of work flowing through the pipeline.
type Record struct {
	ID   string
	Type string
	Data map[string]any
	Raw  string
}

// StageFunc transforms one Record. Returning an error fails the record
// for this stage without stopping the worker; the executor classifies
// the failure and moves on to the next record.
type StageFunc func(ctx context.Context, rec Record) (Record, error)

// SourceFunc is the ingestion worker's body. Unlike every other stage
// it has no input channel: the executor calls it once per Run and it
// must push every record it discovers to emit, returning only once it
// is genuinely done producing — in continuous mode that may not be
// until ctx is cancelled. Each record handed to emit is forwarded to
// the first enabled transform stage immediately, so ingestion and
// downstream stages overlap instead of the latter waiting for the
// former to finish.
type SourceFunc func(ctx context.Context, emit func(Record) error) error

// SliceSource adapts a pre-materialized slice into a SourceFunc, for
// callers and tests with every record already in hand.
func SliceSource(records []Record) SourceFunc {
	return func(ctx context.Context, emit func(Record) error) error {
		for _, r := range records {
			if err := emit(r); err != nil {
				return err
			}
		}
		return nil
	}
}

// StageDef is one named, independently enableable pipeline stage.
type StageDef struct {
	Name    string
	Enabled bool
	Run     StageFunc
}

// Tracker receives per-record outcomes for one stage. Satisfied by a
// small adapter over tracking/stage.Tracker[D], since that type is
// generic over a domain metrics struct the executor has no reason to
// know about.
type Tracker interface {
	RecordSuccess(recordID string, processingTime time.Duration)
	RecordFailure(recordID string, processingTime time.Duration, classified classify.ClassifiedError)
}

// Config configures one Executor run.
type Config struct {
	BufferSize int           // default 1024
	Timeout    time.Duration // 0 means no pipeline-wide timeout
}

// RunResult is the outcome of one Executor.Run call.
type RunResult struct {
	Status   string // "completed", "timeout", "cancelled"
	Results  []Record
	Duration time.Duration
	Errors   []classify.ClassifiedError
}

// Executor runs one ingestion source concurrently with a sequence of
// enabled transform StageDefs, wiring each stage's output directly
// into the next enabled stage's input.
type Executor struct {
	source     SourceFunc
	sourceName string
	stages     []StageDef
	bufferSize int
	timeout    time.Duration
	trackers   map[string]Tracker
}

// New constructs an Executor whose ingestion worker is source. source
// has no input queue of its own — it is the sole producer the rest of
// the graph drains. sourceName attributes the ingestion stage's
// tracker calls and classified errors; empty defaults to "ingestion".
// Disabled transform stages are skipped entirely — their StageFunc is
// never called and no channel is allocated for them.
func New(source SourceFunc, sourceName string, stages []StageDef, cfg Config) *Executor {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if sourceName == "" {
		sourceName = "ingestion"
	}
	return &Executor{
		source:     source,
		sourceName: sourceName,
		stages:     stages,
		bufferSize: cfg.BufferSize,
		timeout:    cfg.Timeout,
		trackers:   make(map[string]Tracker),
	}
}

// WithTracker attaches a per-stage outcome tracker, called for every
// record's success/failure at that stage. stageName may be the
// Executor's sourceName to track ingestion itself.
func (e *Executor) WithTracker(stageName string, t Tracker) *Executor {
	e.trackers[stageName] = t
	return e
}

// Run starts the ingestion worker and every enabled stage's worker
// concurrently. Downstream stages begin consuming records as soon as
// ingestion produces them instead of waiting for it to finish, which
// is what lets a continuous-mode source run indefinitely without
// starving the rest of the graph. Each stage's output channel close is
// the sentinel that stops the next stage's worker — no in-band nil
// value needed, unlike the Python original's explicit None sentinel.
func (e *Executor) Run(ctx context.Context) RunResult {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	result := RunResult{Status: "completed"}
	var errMu sync.Mutex

	ingestOut := make(chan Record, e.bufferSize)
	var ingestWG sync.WaitGroup
	ingestWG.Add(1)
	go e.runSource(runCtx, ingestOut, &errMu, &result, &ingestWG)

	enabled := make([]StageDef, 0, len(e.stages))
	for _, s := range e.stages {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	current := (<-chan Record)(ingestOut)
	var stageWG sync.WaitGroup
	for _, stage := range enabled {
		out := make(chan Record, e.bufferSize)
		stageWG.Add(1)
		go e.runWorker(runCtx, stage, current, out, &errMu, &result, &stageWG)
		current = out
	}

	var collected []Record
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range current {
			collected = append(collected, r)
		}
	}()

	ingestWG.Wait()
	stageWG.Wait()
	<-done

	result.Results = collected
	result.Duration = time.Since(start)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = "timeout"
	case ctx.Err() != nil:
		result.Status = "cancelled"
	}
	return result
}

// runSource drives the ingestion stage: there is no input channel to
// read from, just source pushing into out until it returns or ctx
// ends. A non-nil, non-cancellation error is classified as one
// stage-scoped failure attributed to sourceName; out is always closed
// on return so downstream stages see end-of-stream either way.
func (e *Executor) runSource(ctx context.Context, out chan<- Record, errMu *sync.Mutex, result *RunResult, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(out)
	if e.source == nil {
		return
	}

	started := time.Now()
	emit := func(rec Record) error {
		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
		if t, ok := e.trackers[e.sourceName]; ok {
			t.RecordSuccess(rec.ID, time.Since(started))
		}
		return nil
	}

	if err := e.source(ctx, emit); err != nil && ctx.Err() == nil {
		classified := classify.Classify(err, e.sourceName, "", nil)
		errMu.Lock()
		result.Errors = append(result.Errors, classified)
		errMu.Unlock()
		if t, ok := e.trackers[e.sourceName]; ok {
			t.RecordFailure("", time.Since(started), classified)
		}
	}
}

// runWorker is the single worker goroutine for one transform stage: it
// reads from in until closed (or the context is cancelled), applies the
// stage function, classifies and records failures without stopping the
// worker, and forwards successes to out. out is always closed when the
// worker returns, propagating the sentinel to the next stage.
func (e *Executor) runWorker(ctx context.Context, stage StageDef, in <-chan Record, out chan<- Record, errMu *sync.Mutex, result *RunResult, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(out)

	for {
		select {
		case rec, ok := <-in:
			if !ok {
				return
			}
			started := time.Now()
			next, err := stage.Run(ctx, rec)
			elapsed := time.Since(started)

			if err != nil {
				classified := classify.Classify(err, stage.Name, rec.ID, nil)
				errMu.Lock()
				result.Errors = append(result.Errors, classified)
				errMu.Unlock()
				if t, ok := e.trackers[stage.Name]; ok {
					t.RecordFailure(rec.ID, elapsed, classified)
				}
				continue
			}
			if t, ok := e.trackers[stage.Name]; ok {
				t.RecordSuccess(rec.ID, elapsed)
			}

			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
