package chunking_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/stage/chunking"
)

func TestChunkMergesShortParagraphsIntoOneChunk(t *testing.T) {
	c := chunking.NewFixedSize(1000, 0)
	chunks, err := c.Chunk(context.Background(), "rec-1", "first paragraph\n\nsecond paragraph")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "rec-1#0", chunks[0].ID)
	assert.Contains(t, chunks[0].Text, "first paragraph")
	assert.Contains(t, chunks[0].Text, "second paragraph")
}

func TestChunkSplitsWhenParagraphsOverflowSize(t *testing.T) {
	c := chunking.NewFixedSize(20, 0)
	chunks, err := c.Chunk(context.Background(), "rec-1", "this is paragraph one\n\nthis is paragraph two")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 2)
	for i, ch := range chunks {
		assert.Equal(t, "rec-1#"+string(rune('0'+i)), ch.ID)
	}
}

func TestChunkHardSplitsAnOversizedSingleParagraph(t *testing.T) {
	c := chunking.NewFixedSize(10, 2)
	text := strings.Repeat("a", 35)
	chunks, err := c.Chunk(context.Background(), "rec-1", text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 10)
	}
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(ch.Text[2:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkEmptyTextReturnsNoChunks(t *testing.T) {
	c := chunking.NewFixedSize(100, 0)
	chunks, err := c.Chunk(context.Background(), "rec-1", "   ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRespectsCancellation(t *testing.T) {
	c := chunking.NewFixedSize(100, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Chunk(ctx, "rec-1", "some text")
	assert.ErrorIs(t, err, context.Canceled)
}
