package filewatcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/adapter/filewatcher"
)

type memBookmarks struct {
	mu        sync.Mutex
	processed map[string]bool
}

func newMemBookmarks() *memBookmarks { return &memBookmarks{processed: make(map[string]bool)} }

func (m *memBookmarks) IsProcessed(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[path], nil
}

func (m *memBookmarks) MarkProcessed(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[path] = true
	return nil
}

func TestProcessExistingEnqueuesAndBookmarks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("ignored"), 0o644))

	bookmarks := newMemBookmarks()
	w := filewatcher.New(filewatcher.Config{WatchPath: dir, Extensions: []string{".json"}}, bookmarks, nil)

	out := make(chan filewatcher.File, 10)
	n, err := w.ProcessExisting(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	close(out)
	var files []filewatcher.File
	for f := range out {
		files = append(files, f)
	}
	require.Len(t, files, 1)
	assert.Equal(t, `{"a":1}`, files[0].Data)
}

func TestProcessExistingSkipsBookmarked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	bookmarks := newMemBookmarks()
	w := filewatcher.New(filewatcher.Config{WatchPath: dir, Extensions: []string{".json"}}, bookmarks, nil)

	out := make(chan filewatcher.File, 10)
	_, err := w.ProcessExisting(context.Background(), out)
	require.NoError(t, err)

	// second pass: nothing new to enqueue since the file is now bookmarked
	n, err := w.ProcessExisting(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunSingleScanDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	bookmarks := newMemBookmarks()
	w := filewatcher.New(filewatcher.Config{
		WatchPath:    dir,
		Extensions:   []string{".json"},
		Continuous:   true,
		SingleScan:   true,
		ScanInterval: 10 * time.Millisecond,
	}, bookmarks, nil)

	out := make(chan filewatcher.File, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{}`), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx, out))

	close(out)
	var count int
	for range out {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestRunCreatesWatchDirectoryIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "watch")
	bookmarks := newMemBookmarks()
	w := filewatcher.New(filewatcher.Config{WatchPath: dir, SingleScan: true}, bookmarks, nil)

	out := make(chan filewatcher.File, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx, out))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
