package csr

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/sanonone/glzip/pkg/metrics"
)

// BucketSpan describes one contiguous block of the reordered vertex range.
type BucketSpan struct {
	Key   int  // position of the bucket in the layout
	Train bool // bucket holds training vertices
	// MinDegree and MaxDegree bound the degrees admitted to the bucket.
	// MaxDegree is -1 when unbounded.
	MinDegree int
	MaxDegree int
	Start     int // first new id
	End       int // one past the last new id
}

// Len returns the number of vertices in the bucket.
func (b BucketSpan) Len() int { return b.End - b.Start }

// OptimizeReport describes the layout chosen by OptimizeDetailed.
type OptimizeReport struct {
	Thresholds []int
	Buckets    []BucketSpan
}

// Optimize relabels vertices so that training vertices with similar degree
// relative to the sampling fan-outs in sizes are contiguous, and returns the
// relabeled graph with the permutation p where p[old] = new.
//
// Layout: training vertices first, grouped by the interval their degree falls
// into among the sorted, deduplicated sizes ([0,s0), [s0,s1), ..., [sk,inf)),
// ascending; then all non-training vertices. Within a bucket vertices keep
// ascending old id, so the result is deterministic. Empty sizes yield two
// buckets. Edge multiplicity is preserved.
func (c *CSR) Optimize(trainMask []bool, sizes []int) (*CSR, Permutation, error) {
	g, p, _, err := c.OptimizeDetailed(trainMask, sizes, 0)
	return g, p, err
}

// OptimizeDetailed is Optimize with an explicit worker count (0 uses
// GOMAXPROCS) and a report of the bucket layout.
func (c *CSR) OptimizeDetailed(trainMask []bool, sizes []int, threads int) (*CSR, Permutation, OptimizeReport, error) {
	start := time.Now()
	order := c.Order()
	if len(trainMask) != order {
		return nil, nil, OptimizeReport{}, &ShapeError{What: "train_mask", Got: len(trainMask), Want: order}
	}
	thresholds, err := normalizeSizes(sizes)
	if err != nil {
		return nil, nil, OptimizeReport{}, err
	}

	// Keys 0..len(thresholds) are training intervals, the last is non-training.
	numBuckets := len(thresholds) + 2
	nonTrain := uint32(numBuckets - 1)
	keys := make([]uint32, order)
	parallelRange(order, threads, func(lo, hi int) {
		for v := lo; v < hi; v++ {
			if !trainMask[v] {
				keys[v] = nonTrain
				continue
			}
			keys[v] = uint32(degreeInterval(thresholds, c.offsets[v+1]-c.offsets[v]))
		}
	})

	// Stable counting sort by key.
	bounds := make([]int, numBuckets+1)
	for _, k := range keys {
		bounds[k+1]++
	}
	for i := 1; i <= numBuckets; i++ {
		bounds[i] += bounds[i-1]
	}
	cursor := slices.Clone(bounds[:numBuckets])
	perm := make(Permutation, order)
	for v, k := range keys {
		perm[v] = uint32(cursor[k])
		cursor[k]++
	}

	g := c.permute(perm, perm.Inverse(), threads)
	report := OptimizeReport{Thresholds: thresholds, Buckets: layout(thresholds, bounds)}

	elapsed := time.Since(start)
	metrics.OptimizeDuration.Observe(elapsed.Seconds())
	metrics.GraphBytes.WithLabelValues("optimize").Set(float64(g.NBytes()))
	for _, b := range report.Buckets {
		slog.Debug("[Reorder] Bucket", "key", b.Key, "train", b.Train, "min_degree", b.MinDegree, "max_degree", b.MaxDegree, "vertices", b.Len())
	}
	slog.Info("[Reorder] Optimize complete",
		"order", order,
		"size", g.Size(),
		"thresholds", thresholds,
		"buckets", numBuckets,
		"elapsed", elapsed)
	return g, perm, report, nil
}

// normalizeSizes returns the sorted, deduplicated, non-zero sizes. A fan-out
// of zero draws no neighbors and adds no threshold.
func normalizeSizes(sizes []int) ([]int, error) {
	t := make([]int, 0, len(sizes))
	for i, s := range sizes {
		if s < 0 {
			return nil, &ShapeError{What: fmt.Sprintf("sizes[%d]", i), Got: s, Want: 0, Detail: "negative fan-out"}
		}
		if s > 0 {
			t = append(t, s)
		}
	}
	slices.Sort(t)
	return slices.Compact(t), nil
}

// degreeInterval returns how many thresholds are <= deg.
func degreeInterval(thresholds []int, deg uint64) int {
	return sort.Search(len(thresholds), func(i int) bool {
		return uint64(thresholds[i]) > deg
	})
}

func layout(thresholds []int, bounds []int) []BucketSpan {
	spans := make([]BucketSpan, 0, len(thresholds)+2)
	for k := 0; k <= len(thresholds); k++ {
		b := BucketSpan{Key: k, Train: true, MaxDegree: -1, Start: bounds[k], End: bounds[k+1]}
		if k > 0 {
			b.MinDegree = thresholds[k-1]
		}
		if k < len(thresholds) {
			b.MaxDegree = thresholds[k] - 1
		}
		spans = append(spans, b)
	}
	k := len(thresholds) + 1
	spans = append(spans, BucketSpan{Key: k, MaxDegree: -1, Start: bounds[k], End: bounds[k+1]})
	return spans
}
