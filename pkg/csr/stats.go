package csr

import (
	"slices"

	"github.com/tidwall/btree"
	"gonum.org/v1/gonum/stat"
)

// DegreeCount is one entry of a degree histogram.
type DegreeCount struct {
	Degree   int
	Vertices int
}

// Stats summarizes the out-degree distribution of a graph.
type Stats struct {
	Order     int
	Size      int
	NBytes    int
	MinDegree int
	MaxDegree int
	Mean      float64
	StdDev    float64
	Median    float64
	P99       float64
	Isolated  int // vertices with no out-edges
	SelfLoops int
	// Histogram is ordered by ascending degree and omits empty degrees.
	Histogram []DegreeCount
}

// Stats computes the degree summary. It walks the whole graph once.
func (c *CSR) Stats() Stats {
	s := Stats{Order: c.Order(), Size: c.Size(), NBytes: c.NBytes()}
	if s.Order == 0 {
		return s
	}

	degrees := make([]float64, s.Order)
	hist := btree.NewMap[int, int](0)
	s.MinDegree = c.Degree(0)
	for v := 0; v < s.Order; v++ {
		d := int(c.offsets[v+1] - c.offsets[v])
		degrees[v] = float64(d)
		s.MinDegree = min(s.MinDegree, d)
		s.MaxDegree = max(s.MaxDegree, d)
		if d == 0 {
			s.Isolated++
		}
		n, _ := hist.Get(d)
		hist.Set(d, n+1)
		for _, u := range c.neighbors[c.offsets[v]:c.offsets[v+1]] {
			if int(u) == v {
				s.SelfLoops++
			}
		}
	}

	if s.Order > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(degrees, nil)
	} else {
		s.Mean = degrees[0]
	}
	slices.Sort(degrees)
	s.Median = stat.Quantile(0.5, stat.Empirical, degrees, nil)
	s.P99 = stat.Quantile(0.99, stat.Empirical, degrees, nil)

	s.Histogram = make([]DegreeCount, 0, hist.Len())
	hist.Scan(func(d, n int) bool {
		s.Histogram = append(s.Histogram, DegreeCount{Degree: d, Vertices: n})
		return true
	})
	return s
}

// BaselineBytes is the footprint of the same graph in the plain layout used
// as a reference for compression ratios: 8-byte offsets, 4-byte neighbors
// and a 24-byte header.
func (s Stats) BaselineBytes() int {
	return (s.Order+1)*8 + s.Size*4 + 24
}

// CompressionRatio returns NBytes relative to BaselineBytes.
func (s Stats) CompressionRatio() float64 {
	return float64(s.NBytes) / float64(s.BaselineBytes())
}
