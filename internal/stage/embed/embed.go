// Package embed defines the embedding collaborator interface the
// pipeline calls after chunking and ships one deterministic stub
// implementation, grounded on the mock provider in
// kraklabs-cie/pkg/ingestion/embedding.go (hash-seeded pseudo-random
// values mapped to [-1,1], then L2-normalized). A real model client is
// out of scope; this stub exists to drive internal/pipeline end to end.
package embed

import (
	"context"
	"math"
)

// Embedder generates vectors for chunked text. Implementations must be
// safe for concurrent use, since pipeline stages run on their own
// goroutine per enabled stage.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Deterministic is a hash-seeded stand-in for a real embedding model.
// It never errors and never calls out to the network; vectors are
// reproducible for the same text and dimension, which is what the
// pipeline's tests need.
type Deterministic struct {
	Dimensions int
}

// NewDeterministic returns a Deterministic embedder producing vectors
// of the given dimension. dimensions <= 0 defaults to 384, the common
// small-model size used as the mock default in the pack.
func NewDeterministic(dimensions int) *Deterministic {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Deterministic{Dimensions: dimensions}
}

// Embed returns one normalized vector per input text. Context
// cancellation is honored between texts so a caller can bound total
// work even though no call ever blocks on I/O.
func (d *Deterministic) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vectors[i] = vectorFor(text, d.Dimensions)
	}
	return vectors, nil
}

func vectorFor(text string, dimensions int) []float32 {
	hash := hashString(text)

	vector := make([]float32, dimensions)
	for i := 0; i < dimensions; i++ {
		val := float32((hash+uint64(i)*7919)%10000) / 10000.0
		vector[i] = val*2.0 - 1.0
	}
	return normalize(vector)
}

func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

func normalize(vector []float32) []float32 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vector
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
