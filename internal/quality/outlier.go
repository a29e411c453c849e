package quality

import (
	"math"
	"sync"
)

// domainOutlierRange hard-codes plausibility bounds distinct from
// consistency's range checks: these are used only once a field has too
// little history for a statistical judgment, or as a second opinion once
// it has enough.
var domainOutlierRange = map[string][2]float64{
	"age":                {0, 130},
	"heart_rate":         {30, 220},
	"temperature_celsius": {32, 43},
	"weight_kg":          {0, 400},
}

// fieldDistribution is Welford's running mean/variance for one numeric
// field, so the outlier sub-scorer doesn't need to retain every value.
type fieldDistribution struct {
	count int64
	mean  float64
	m2    float64
}

func (d *fieldDistribution) update(x float64) {
	d.count++
	delta := x - d.mean
	d.mean += delta / float64(d.count)
	delta2 := x - d.mean
	d.m2 += delta * delta2
}

func (d *fieldDistribution) stddev() float64 {
	if d.count < 2 {
		return 0
	}
	return math.Sqrt(d.m2 / float64(d.count-1))
}

// minSamplesForStatistical is how much history a field needs before its
// distribution is trusted for a 3-sigma judgment, per spec.md §4.9.
const minSamplesForStatistical = 30

// distributionTracker maintains per-field running distributions across an
// entire batch run so scoreOutlier's statistical threshold improves as
// more records are seen.
type distributionTracker struct {
	mu    sync.Mutex
	byField map[string]*fieldDistribution
}

func newDistributionTracker() *distributionTracker {
	return &distributionTracker{byField: make(map[string]*fieldDistribution)}
}

// scoreOutlier flags a field as an outlier if it falls outside 3 standard
// deviations of the field's running distribution (once enough history
// exists) or outside the hard-coded domain plausibility table. Each
// outlier field costs 0.2 off the score, per spec.md §4.9.
func (t *distributionTracker) scoreOutlier(record map[string]any) (float64, []string) {
	var outliers []string

	t.mu.Lock()
	for field, raw := range record {
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		dist, exists := t.byField[field]
		if !exists {
			dist = &fieldDistribution{}
			t.byField[field] = dist
		}

		isOutlier := false
		if bounds, ok := domainOutlierRange[field]; ok && (v < bounds[0] || v > bounds[1]) {
			isOutlier = true
		}
		if !isOutlier && dist.count >= minSamplesForStatistical {
			if sd := dist.stddev(); sd > 0 && math.Abs(v-dist.mean) > 3*sd {
				isOutlier = true
			}
		}
		dist.update(v)

		if isOutlier {
			outliers = append(outliers, field)
		}
	}
	t.mu.Unlock()

	score := 1.0 - 0.2*float64(len(outliers))
	if score < 0 {
		score = 0
	}
	return score, outliers
}
