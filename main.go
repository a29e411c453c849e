package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/pulsepipe/ingest/internal/adapter/filewatcher"
	"github.com/pulsepipe/ingest/internal/bookmark"
	"github.com/pulsepipe/ingest/internal/config"
	"github.com/pulsepipe/ingest/internal/obslog"
	"github.com/pulsepipe/ingest/internal/persistence/sqliteprovider"
	"github.com/pulsepipe/ingest/internal/pipectx"
	"github.com/pulsepipe/ingest/internal/pipeline"
	"github.com/pulsepipe/ingest/internal/stage/chunking"
	"github.com/pulsepipe/ingest/internal/stage/deid"
	"github.com/pulsepipe/ingest/internal/stage/embed"
	"github.com/pulsepipe/ingest/internal/stage/vectorstore"
	"github.com/pulsepipe/ingest/internal/tracking"
	"github.com/pulsepipe/ingest/internal/tracking/model"
	"github.com/pulsepipe/ingest/internal/tracking/stage"
)

// chunkSize and chunkOverlap bound the FixedSize chunker's output; no
// config key sets them. chunkSize equals the chunking package's default
// size; chunkOverlap is 100, where the package's default overlap is 0.
const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// watcherBookmarks fits a bookmark.Store to filewatcher.Bookmarks,
// recording every file the watcher marks with status "processed".
type watcherBookmarks struct{ bookmark.Store }

func (b watcherBookmarks) MarkProcessed(ctx context.Context, path string) error {
	return b.Store.MarkProcessed(ctx, path, "processed")
}

func main() {
	var (
		configPath  string
		watchPath   string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "pulsepipe.yaml", "Path to the YAML configuration file")
	flag.StringVar(&watchPath, "watch-path", "", "Override adapter.watch_path from the config file")
	flag.BoolVar(&showVersion, "version", false, "Show version / build info")
	flag.Parse()

	if showVersion {
		fmt.Println("pulsepipe ingest engine")
		return
	}

	logger := obslog.New("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if watchPath != "" {
		cfg.Adapter.WatchPath = watchPath
	}
	if cfg.Adapter.WatchPath == "" {
		log.Fatalf("adapter.watch_path is required (set it in %s or pass -watch-path)", configPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logger.Warn().Msg("signal received; initiating graceful shutdown")
		cancel()
		<-sigCh
		logger.Error().Msg("second signal received; forcing exit")
		os.Exit(1)
	}()

	dbPath := cfg.Persistence.Database.Path
	if dbPath == "" {
		dbPath = "pulsepipe.db"
	}
	provider := sqliteprovider.New(dbPath)
	if err := provider.Connect(ctx); err != nil {
		log.Fatalf("connect persistence provider: %v", err)
	}
	defer func() { _ = provider.Disconnect(ctx) }()
	if err := provider.InitializeSchema(ctx); err != nil {
		log.Fatalf("initialize schema: %v", err)
	}

	repo := tracking.New(provider)
	if err := repo.Connect(ctx); err != nil {
		log.Fatalf("connect tracking repository: %v", err)
	}
	defer func() { _ = repo.Close(ctx) }()

	bookmarks, err := bookmark.NewFromConfig(bookmark.Config{Type: "sqlite", DBPath: dbPath})
	if err != nil {
		log.Fatalf("construct bookmark store: %v", err)
	}
	defer func() { _ = bookmarks.Close() }()

	runID := uuid.NewString()
	runName := "ingest-" + runID
	if _, err := repo.StartRun(ctx, runName, map[string]any{"watch_path": cfg.Adapter.WatchPath}); err != nil {
		log.Fatalf("start run: %v", err)
	}

	enabledStages := []string{"ingestion", "normalize"}
	if cfg.DataIntelligence.Enabled {
		enabledStages = append(enabledStages, "deid", "chunking", "embedding", "vectorstore")
	}
	pctx := pipectx.New(runID, runName, "", map[string]any{}, enabledStages)
	pctx.CheckDependencies()

	chunker := chunking.NewFixedSize(chunkSize, chunkOverlap)
	embedder := embed.NewDeterministic(384)
	store := vectorstore.NewInMemory()
	redactor := deid.NewFieldRedactor(nil)

	watcher := filewatcher.New(filewatcher.Config{
		WatchPath:  cfg.Adapter.WatchPath,
		Extensions: cfg.Adapter.Extensions,
		Continuous: cfg.Adapter.Continuous,
	}, watcherBookmarks{bookmarks}, obslog.Printf{Logger: logger})

	stages := []pipeline.StageDef{
		{Name: "normalize", Enabled: pctx.IsStageEnabled("normalize"), Run: normalizeStage},
		{Name: "deid", Enabled: pctx.IsStageEnabled("deid"), Run: deidStage(redactor)},
		{Name: "chunking", Enabled: pctx.IsStageEnabled("chunking"), Run: chunkingStage(chunker)},
		{Name: "embedding", Enabled: pctx.IsStageEnabled("embedding"), Run: embeddingStage(embedder)},
		{Name: "vectorstore", Enabled: pctx.IsStageEnabled("vectorstore"), Run: vectorstoreStage(store)},
	}

	executor := pipeline.New(watcherSource(watcher), "ingestion", stages, pipeline.Config{})
	if cfg.DataIntelligence.Enabled {
		pctx.Chunking = stage.NewChunkingTracker(runID, repo)
		pctx.Embedding = stage.NewEmbeddingTracker(runID, repo)
		executor.WithTracker("chunking", pipectx.TrackerFor(pctx.Chunking))
		executor.WithTracker("embedding", pipectx.TrackerFor(pctx.Embedding))
	}

	pctx.StartStage("pipeline")
	result := executor.Run(ctx)
	pctx.EndStage("pipeline")

	for _, classified := range result.Errors {
		pctx.AddError(classified.StageName, classified.Original)
	}

	status := model.RunStatusCompleted
	switch result.Status {
	case "timeout", "cancelled":
		status = model.RunStatusFailed
	}
	if err := repo.CompleteRun(ctx, runID, status, ""); err != nil {
		logger.Error().Err(err).Msg("complete run")
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(pctx.Summary(result)); err != nil {
		logger.Error().Err(err).Msg("encode run summary")
	}

	if result.Status != "completed" {
		os.Exit(1)
	}
}

// watcherSource adapts a filewatcher.Watcher into a pipeline.SourceFunc:
// the watcher's own goroutine feeds an internal channel, and every file
// it reports is forwarded to emit as soon as it arrives, so the watcher
// never has to finish (or be drained into memory) before the rest of
// the stage graph starts consuming. This is what lets adapter.continuous
// run indefinitely instead of deadlocking the executor.
func watcherSource(watcher *filewatcher.Watcher) pipeline.SourceFunc {
	return func(ctx context.Context, emit func(pipeline.Record) error) error {
		files := make(chan filewatcher.File, 1024)
		watchErrCh := make(chan error, 1)
		go func() {
			err := watcher.Run(ctx, files)
			close(files)
			watchErrCh <- err
		}()

		for f := range files {
			rec := pipeline.Record{ID: f.Path, Raw: f.Data, Data: map[string]any{}}
			if err := emit(rec); err != nil {
				return err
			}
		}
		return <-watchErrCh
	}
}

func normalizeStage(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
	rec.Data["raw_length"] = len(rec.Raw)
	return rec, nil
}

func deidStage(redactor *deid.FieldRedactor) pipeline.StageFunc {
	return func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
		redacted, _, err := redactor.Deidentify(ctx, rec.Data)
		if err != nil {
			return rec, err
		}
		rec.Data = redacted
		return rec, nil
	}
}

// chunkingStage splits rec.Raw into retrieval-sized chunks and stores
// them in rec.Data["chunks"], giving embeddingStage real chunk
// boundaries to embed instead of the whole record at once.
func chunkingStage(chunker *chunking.FixedSize) pipeline.StageFunc {
	return func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
		chunks, err := chunker.Chunk(ctx, rec.ID, rec.Raw)
		if err != nil {
			return rec, err
		}
		rec.Data["chunks"] = chunks
		return rec, nil
	}
}

// embeddingStage embeds every chunk produced upstream, keyed by chunk
// id. If chunking didn't run (or produced nothing), it falls back to
// embedding rec.Raw as a single chunk under rec.ID, so the stage still
// has defined behavior when chunking is disabled.
func embeddingStage(embedder *embed.Deterministic) pipeline.StageFunc {
	return func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
		chunks, _ := rec.Data["chunks"].([]chunking.Chunk)
		if len(chunks) == 0 {
			chunks = []chunking.Chunk{{ID: rec.ID, Text: rec.Raw}}
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return rec, err
		}

		byID := make(map[string][]float32, len(chunks))
		for i, c := range chunks {
			byID[c.ID] = vectors[i]
		}
		rec.Data["chunk_vectors"] = byID
		return rec, nil
	}
}

// vectorstoreStage upserts one vector per embedded chunk id. Metadata
// carries the owning record's id so a chunk can be traced back to it.
func vectorstoreStage(store *vectorstore.InMemory) pipeline.StageFunc {
	return func(ctx context.Context, rec pipeline.Record) (pipeline.Record, error) {
		byID, _ := rec.Data["chunk_vectors"].(map[string][]float32)
		if len(byID) == 0 {
			return rec, nil
		}

		ids := make([]string, 0, len(byID))
		vectors := make([][]float32, 0, len(byID))
		metadata := make([]map[string]any, 0, len(byID))
		for id, vector := range byID {
			ids = append(ids, id)
			vectors = append(vectors, vector)
			metadata = append(metadata, map[string]any{"record_id": rec.ID})
		}

		err := store.Upsert(ctx, ids, vectors, metadata)
		return rec, err
	}
}
