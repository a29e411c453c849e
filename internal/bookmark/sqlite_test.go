package bookmark_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/bookmark"
)

func TestSQLiteStoreMarkAndCheck(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bookmarks.db")
	store, err := bookmark.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	processed, err := store.IsProcessed(ctx, "a/b/c.x12")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.MarkProcessed(ctx, "a/b/c.x12", ""))

	processed, err = store.IsProcessed(ctx, "a/b/c.x12")
	require.NoError(t, err)
	assert.True(t, processed)

	// Windows-style separators normalize to the same bookmark.
	processed, err = store.IsProcessed(ctx, `a\b\c.x12`)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestSQLiteStoreMarkProcessedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := bookmark.NewSQLiteStore(filepath.Join(t.TempDir(), "bookmarks.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.MarkProcessed(ctx, "f.hl7", "processed"))
	require.NoError(t, store.MarkProcessed(ctx, "f.hl7", "reprocessed"))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f.hl7"}, all)
}

func TestSQLiteStoreClearAll(t *testing.T) {
	ctx := context.Background()
	store, err := bookmark.NewSQLiteStore(filepath.Join(t.TempDir(), "bookmarks.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.MarkProcessed(ctx, "one.x12", ""))
	require.NoError(t, store.MarkProcessed(ctx, "two.x12", ""))

	n, err := store.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewFromConfigUnsupportedEngines(t *testing.T) {
	for _, engine := range []string{"postgres", "redis", "s3", "dynamo"} {
		_, err := bookmark.NewFromConfig(bookmark.Config{Type: engine})
		assert.Error(t, err)
	}
}

func TestNewFromConfigDefaultsToSQLite(t *testing.T) {
	store, err := bookmark.NewFromConfig(bookmark.Config{DBPath: filepath.Join(t.TempDir(), "bm.db")})
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &bookmark.SQLiteStore{}, store)
}
