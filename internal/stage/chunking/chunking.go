// Package chunking defines the chunking collaborator interface the
// pipeline calls between de-identification and embedding, and ships one
// deterministic splitter implementation. Grounded on kraklabs-cie's
// Batcher (pkg/ingestion/batcher.go), which accumulates statements into
// a batch until the next one would overflow the size limit, flushes,
// and hard-splits anything that alone exceeds it; the same accumulate-
// flush-overflow shape here works on paragraphs of record text instead
// of Datalog statements. A real token-aware, semantic-boundary splitter
// is out of scope; this stub exists to give the embedding stage real
// chunk boundaries to operate on.
package chunking

import (
	"context"
	"fmt"
	"strings"
)

// Chunk is one retrieval-sized slice of a record's text.
type Chunk struct {
	ID   string
	Text string
}

// Chunker splits one record's text into Chunks. Implementations must be
// safe for concurrent use, since pipeline stages run on their own
// goroutine per enabled stage.
type Chunker interface {
	Chunk(ctx context.Context, recordID, text string) ([]Chunk, error)
}

// FixedSize splits text on blank-line paragraph boundaries, accumulating
// consecutive paragraphs into one chunk until the next paragraph would
// push it past Size bytes, then starting a new chunk. A paragraph
// longer than Size on its own is hard-cut into Size-byte windows with
// Overlap bytes shared between consecutive windows, rather than
// rejected outright.
type FixedSize struct {
	Size    int
	Overlap int
}

// NewFixedSize returns a FixedSize chunker. size <= 0 defaults to 1000
// bytes; an overlap outside [0, size) is treated as 0.
func NewFixedSize(size, overlap int) *FixedSize {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &FixedSize{Size: size, Overlap: overlap}
}

// Chunk splits text into chunks whose IDs are recordID suffixed with a
// "#<index>" ordinal, so downstream stages can correlate a chunk back
// to the record it came from.
func (f *FixedSize) Chunk(ctx context.Context, recordID, text string) ([]Chunk, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{ID: fmt.Sprintf("%s#%d", recordID, len(chunks)), Text: current.String()})
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len("\n\n")+len(para) > f.Size {
			flush()
		}
		if len(para) > f.Size {
			flush()
			chunks = append(chunks, f.hardSplit(recordID, len(chunks), para)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks, nil
}

func (f *FixedSize) hardSplit(recordID string, startIndex int, text string) []Chunk {
	step := f.Size - f.Overlap
	if step <= 0 {
		step = f.Size
	}

	var chunks []Chunk
	for start := 0; start < len(text); start += step {
		end := start + f.Size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{ID: fmt.Sprintf("%s#%d", recordID, startIndex+len(chunks)), Text: text[start:end]})
		if end == len(text) {
			break
		}
	}
	return chunks
}
