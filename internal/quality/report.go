package quality

import (
	"sort"
)

// Bucket names for the aggregate overall-score distribution.
const (
	BucketExcellent = "excellent"
	BucketGood      = "good"
	BucketFair      = "fair"
	BucketPoor      = "poor"
)

func bucketFor(overall float64) string {
	switch {
	case overall >= 0.9:
		return BucketExcellent
	case overall >= 0.8:
		return BucketGood
	case overall >= 0.7:
		return BucketFair
	default:
		return BucketPoor
	}
}

// IssueFrequency is one entry in the aggregate's top-N most-common-issues
// list.
type IssueFrequency struct {
	IssueType  string  `json:"issue_type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Aggregate summarizes a batch of Results: bucketed distribution of
// overall scores and the most frequent issue types.
type Aggregate struct {
	RecordsScored int                `json:"records_scored"`
	RecordsSampled int               `json:"records_sampled"`
	Distribution  map[string]int      `json:"distribution"`
	AvgOverall    float64             `json:"avg_overall"`
	TopIssues     []IssueFrequency    `json:"top_issues"`
}

// BatchScore scores every record in records at sampleRate (1.0 scores
// everything); records skipped by sampling get a zero-valued, Sampled
// =false placeholder so positional correspondence with the input slice is
// preserved. The sampled records are picked by simple deterministic
// striding (every int(1/sampleRate)-th index, starting at 0) rather than
// randomness, so repeated runs over the same input are reproducible.
func (s *Scorer) BatchScore(recordType string, records []map[string]any, sampleRate float64) []Result {
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	if sampleRate > 1 {
		sampleRate = 1.0
	}
	stride := int(1.0 / sampleRate)
	if stride < 1 {
		stride = 1
	}

	results := make([]Result, len(records))
	for i, record := range records {
		if i%stride != 0 {
			results[i] = placeholderResult()
			continue
		}
		results[i] = s.Score(recordType, record)
	}
	return results
}

// Summarize builds an Aggregate over scored results, ignoring unsampled
// placeholders, and returns the topN most common issue types.
func Summarize(results []Result, topN int) Aggregate {
	agg := Aggregate{Distribution: map[string]int{
		BucketExcellent: 0, BucketGood: 0, BucketFair: 0, BucketPoor: 0,
	}}

	issueCounts := make(map[string]int)
	var overallSum float64

	for _, r := range results {
		agg.RecordsSampled++
		if !r.Sampled {
			continue
		}
		agg.RecordsScored++
		overallSum += r.Overall
		agg.Distribution[bucketFor(r.Overall)]++
		for _, issue := range r.Issues {
			issueCounts[issue.IssueType]++
		}
	}

	if agg.RecordsScored > 0 {
		agg.AvgOverall = overallSum / float64(agg.RecordsScored)
	}

	agg.TopIssues = topIssues(issueCounts, agg.RecordsScored, topN)
	return agg
}

func topIssues(counts map[string]int, totalScored, topN int) []IssueFrequency {
	freqs := make([]IssueFrequency, 0, len(counts))
	for issueType, count := range counts {
		pct := 0.0
		if totalScored > 0 {
			pct = float64(count) / float64(totalScored) * 100
		}
		freqs = append(freqs, IssueFrequency{IssueType: issueType, Count: count, Percentage: pct})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].IssueType < freqs[j].IssueType
	})
	if topN > 0 && len(freqs) > topN {
		freqs = freqs[:topN]
	}
	return freqs
}
