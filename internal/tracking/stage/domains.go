package stage

// IngestionDomain tracks bytes moved through the ingestion stage.
type IngestionDomain struct {
	BytesProcessed int64 `json:"bytes_processed"`
}

// ChunkingDomain tracks chunk counts and sizes for the chunking stage.
type ChunkingDomain struct {
	ChunkCount      int64 `json:"chunk_count"`
	TotalChunkChars int64 `json:"total_chunk_chars"`
}

// AvgChunkSize is the mean chunk length in characters.
func (d ChunkingDomain) AvgChunkSize() float64 {
	if d.ChunkCount == 0 {
		return 0
	}
	return float64(d.TotalChunkChars) / float64(d.ChunkCount)
}

// EmbeddingDomain tracks vector throughput for the embedding stage.
type EmbeddingDomain struct {
	VectorCount int64 `json:"vector_count"`
	Dimensions  int   `json:"dimensions"`
}

// QualityDomain tracks the count of quality scores produced per batch.
type QualityDomain struct {
	ScoresProduced int64 `json:"scores_produced"`
}

// NewIngestionTracker builds the ingestion stage tracker with its
// byte-throughput domain metrics and the spec's default recommendation.
func NewIngestionTracker(runID string, persister Persister) *Tracker[IngestionDomain] {
	return New[IngestionDomain]("ingestion", runID, persister, nil)
}

// NewChunkingTracker builds the chunking stage tracker with spec.md
// §4.5's exact chunk-size-skew recommendation thresholds.
func NewChunkingTracker(runID string, persister Persister) *Tracker[ChunkingDomain] {
	return New[ChunkingDomain]("chunking", runID, persister, chunkingRecommendations)
}

func chunkingRecommendations(s Summary[ChunkingDomain]) []string {
	if s.Counters.FailureRate() > 10 {
		return []string{"high failure rate"}
	}
	if s.AvgProcessingMs > 1000 {
		return []string{"slow processing"}
	}
	var avgSize float64
	var n int
	for _, b := range s.Batches {
		if b.Domain.ChunkCount > 0 {
			avgSize += b.Domain.AvgChunkSize()
			n++
		}
	}
	if n > 0 {
		avgSize /= float64(n)
		if avgSize > 2000 || avgSize < 200 {
			return []string{"size skew"}
		}
	}
	return []string{"healthy"}
}

// NewEmbeddingTracker builds the embedding stage tracker.
func NewEmbeddingTracker(runID string, persister Persister) *Tracker[EmbeddingDomain] {
	return New[EmbeddingDomain]("embedding", runID, persister, nil)
}

// NewQualityTracker builds the quality stage tracker.
func NewQualityTracker(runID string, persister Persister) *Tracker[QualityDomain] {
	return New[QualityDomain]("quality", runID, persister, nil)
}
