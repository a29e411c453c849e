// Package vectorstore defines the vector-store collaborator interface
// the pipeline writes chunk embeddings to, and ships one in-memory
// stub implementation. Grounded on the Backend interface in
// kraklabs-cie/pkg/storage/backend.go (a narrow, context-aware
// read/write contract in front of a swappable engine) adapted to the
// upsert-by-id shape this pipeline needs; a real wire client (pgvector,
// Qdrant, etc.) is out of scope.
package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// VectorStore upserts embedded chunks by id. ids, vectors, and
// metadata are parallel slices of equal length.
type VectorStore interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]any) error
}

// Record is what an InMemory store keeps for each upserted id.
type Record struct {
	Vector   []float32
	Metadata map[string]any
}

// InMemory is a stub VectorStore backed by a mutex-guarded map,
// sufficient to drive internal/pipeline end to end in tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemory returns an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]Record)}
}

// Upsert overwrites any existing record for each id. An id, vector, or
// metadata slice length mismatch is a caller error and fails the
// whole batch without storing any of it.
func (s *InMemory) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("vectorstore: ids (%d), vectors (%d), and metadata (%d) must have equal length", len(ids), len(vectors), len(metadata))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		s.records[id] = Record{Vector: vectors[i], Metadata: metadata[i]}
	}
	return nil
}

// Get returns the record stored for id, if any.
func (s *InMemory) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of distinct ids currently stored.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
