// Package filewatcher polls a directory for healthcare data files and
// feeds their contents to the ingestion stage, deduplicating via a
// bookmark store. Grounded directly on the original
// pulsepipe/adapters/file_watcher.py (process_existing_files /
// watch_for_changes / known-files diffing / normalize_path), re-expressed
// in the idiom of the teacher's fsnotify-based watcher in
// engine/internal/runtime/runtime.go (HotReloadSystem): fsnotify gives an
// optional fast-path wakeup, the poll loop remains the correctness
// baseline since fsnotify is best-effort across platforms and network
// filesystems.
package filewatcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pulsepipe/ingest/internal/bookmark/normalize"
)

// Bookmarks is the subset of bookmark.Store the watcher needs.
type Bookmarks interface {
	IsProcessed(ctx context.Context, path string) (bool, error)
	MarkProcessed(ctx context.Context, path string) error
}

// ErrorLogger receives non-fatal read errors (permission denied, file
// disappeared between listing and open) as warnings rather than failures.
type ErrorLogger interface {
	Printf(format string, args ...any)
}

// File is one enqueued unit of work: its normalized path and contents.
type File struct {
	Path string
	Data string
}

// Config configures one Watcher instance.
type Config struct {
	WatchPath    string
	Extensions   []string      // e.g. [".json", ".x12", ".hl7"]
	Continuous   bool
	ScanInterval time.Duration // default 1s, per the original adapter's default
	SingleScan   bool          // test-only: process one cycle then return
}

// Watcher polls Config.WatchPath for matching files, skipping anything
// the bookmark store has already marked processed.
type Watcher struct {
	cfg        Config
	bookmarks  Bookmarks
	errLog     ErrorLogger
	knownFiles map[string]struct{}
	mu         sync.Mutex
}

// New constructs a Watcher. errLog may be nil to discard warnings.
func New(cfg Config, bookmarks Bookmarks, errLog ErrorLogger) *Watcher {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 1 * time.Second
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".json"}
	}
	return &Watcher{cfg: cfg, bookmarks: bookmarks, errLog: errLog, knownFiles: make(map[string]struct{})}
}

func (w *Watcher) logf(format string, args ...any) {
	if w.errLog != nil {
		w.errLog.Printf(format, args...)
	}
}

// Run ensures the watch directory exists, processes whatever is already
// there, then — if Config.Continuous — watches for new arrivals until ctx
// is cancelled. out receives every enqueued File.
func (w *Watcher) Run(ctx context.Context, out chan<- File) error {
	if err := os.MkdirAll(w.cfg.WatchPath, 0o755); err != nil {
		return err
	}

	if _, err := w.ProcessExisting(ctx, out); err != nil {
		return err
	}

	if !w.cfg.Continuous {
		return nil
	}
	return w.watchForChanges(ctx, out)
}

// ProcessExisting scans the watch directory once, enqueuing every
// unprocessed matching file, and returns how many it enqueued.
func (w *Watcher) ProcessExisting(ctx context.Context, out chan<- File) (int, error) {
	matches, err := w.findMatchingFiles()
	if err != nil {
		return 0, err
	}

	processed := 0
	w.mu.Lock()
	for _, path := range matches {
		w.knownFiles[normalize.Path(path)] = struct{}{}
	}
	w.mu.Unlock()

	for _, path := range matches {
		enqueued, err := w.readAndEnqueue(ctx, path, out)
		if err != nil {
			w.logf("filewatcher: error reading %s: %v", path, err)
			continue
		}
		if enqueued {
			processed++
		}
	}
	return processed, nil
}

func (w *Watcher) watchForChanges(ctx context.Context, out chan<- File) error {
	wake := w.startFsnotifyFastPath(ctx)
	defer close(wake.stop)

	ticker := time.NewTicker(w.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		if err := w.scanOnce(ctx, out); err != nil {
			return err
		}
		if w.cfg.SingleScan {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake.notify:
		}
	}
}

func (w *Watcher) scanOnce(ctx context.Context, out chan<- File) error {
	matches, err := w.findMatchingFiles()
	if err != nil {
		w.logf("filewatcher: scan error: %v", err)
		return nil
	}

	current := make(map[string]string, len(matches)) // normalized -> original
	for _, path := range matches {
		current[normalize.Path(path)] = path
	}

	w.mu.Lock()
	var fresh []string
	for norm, orig := range current {
		if _, known := w.knownFiles[norm]; !known {
			fresh = append(fresh, orig)
		}
	}
	w.knownFiles = make(map[string]struct{}, len(current))
	for norm := range current {
		w.knownFiles[norm] = struct{}{}
	}
	w.mu.Unlock()

	for _, path := range fresh {
		if _, err := w.readAndEnqueue(ctx, path, out); err != nil {
			w.logf("filewatcher: error reading %s: %v", path, err)
		}
	}
	return nil
}

func (w *Watcher) readAndEnqueue(ctx context.Context, path string, out chan<- File) (bool, error) {
	normPath := normalize.Path(path)

	processed, err := w.bookmarks.IsProcessed(ctx, normPath)
	if err != nil {
		return false, err
	}
	if processed {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.logf("filewatcher: file disappeared before processing: %s", path)
			return false, nil
		}
		return false, err
	}

	select {
	case out <- File{Path: normPath, Data: string(data)}:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if err := w.bookmarks.MarkProcessed(ctx, normPath); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Watcher) findMatchingFiles() ([]string, error) {
	var matches []string
	err := filepath.WalkDir(w.cfg.WatchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // matches the original's "log and return empty" resilience
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range w.cfg.Extensions {
			if strings.EqualFold(filepath.Ext(path), ext) {
				matches = append(matches, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil
	}
	return matches, nil
}

type fastPathWake struct {
	notify <-chan struct{}
	stop   chan struct{}
}

// startFsnotifyFastPath watches the directory for write/create events as
// an optional low-latency wakeup; its failure (platform or filesystem
// doesn't support it) is silently tolerated since the poll loop above is
// the correctness baseline.
func (w *Watcher) startFsnotifyFastPath(ctx context.Context) fastPathWake {
	notify := make(chan struct{}, 1)
	stop := make(chan struct{})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fastPathWake{notify: notify, stop: stop}
	}
	if err := watcher.Add(w.cfg.WatchPath); err != nil {
		watcher.Close()
		return fastPathWake{notify: notify, stop: stop}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case notify <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return fastPathWake{notify: notify, stop: stop}
}
