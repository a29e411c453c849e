package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/stage/vectorstore"
)

func TestUpsertStoresAndOverwritesByID(t *testing.T) {
	store := vectorstore.NewInMemory()

	err := store.Upsert(context.Background(),
		[]string{"chunk-1"},
		[][]float32{{0.1, 0.2}},
		[]map[string]any{{"source": "note-1"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	err = store.Upsert(context.Background(),
		[]string{"chunk-1"},
		[][]float32{{0.9, 0.9}},
		[]map[string]any{{"source": "note-1-revised"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	rec, ok := store.Get("chunk-1")
	require.True(t, ok)
	assert.Equal(t, []float32{0.9, 0.9}, rec.Vector)
	assert.Equal(t, "note-1-revised", rec.Metadata["source"])
}

func TestUpsertRejectsMismatchedLengths(t *testing.T) {
	store := vectorstore.NewInMemory()

	err := store.Upsert(context.Background(),
		[]string{"chunk-1", "chunk-2"},
		[][]float32{{0.1, 0.2}},
		[]map[string]any{{}, {}},
	)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestUpsertRespectsCancellation(t *testing.T) {
	store := vectorstore.NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upsert(ctx, []string{"chunk-1"}, [][]float32{{0.1}}, []map[string]any{{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetMissingIDReturnsFalse(t *testing.T) {
	store := vectorstore.NewInMemory()
	_, ok := store.Get("missing")
	assert.False(t, ok)
}
