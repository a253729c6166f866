// Package csr provides an immutable Compressed-Sparse-Row adjacency structure
// for directed graphs, a chunked parallel builder that turns an edge stream of
// arbitrary size into a CSR, and a reorder engine that relabels vertices to
// improve locality for neighbor sampling.
//
// Basic usage:
//
//	b := csr.NewBuilder(csr.BuilderConfig{NumThreads: 8})
//	g, err := b.Build(csr.NewSliceSource(edges))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opt, perm, err := g.Optimize(trainMask, []int{10, 10})
//
// Vertex ids are uint32. Offsets are uint64 so graphs with more than 2^32
// edges are representable.
package csr

import (
	"fmt"
	"slices"
)

// Edge is a directed edge Src -> Dst.
type Edge struct {
	Src uint32
	Dst uint32
}

// MaxOrder is the largest vertex count addressable with uint32 ids.
const MaxOrder = 1 << 32

const (
	offsetBytes   = 8
	neighborBytes = 4
)

// CSR is an immutable compressed adjacency structure.
// Neighbors of v are NeighborIDs()[Offsets()[v]:Offsets()[v+1]].
type CSR struct {
	offsets   []uint64
	neighbors []uint32
}

// New returns the empty graph (order 0, size 0).
func New() *CSR {
	return &CSR{offsets: []uint64{0}}
}

// fromParts wraps arrays that are already known to be valid. No copy.
func fromParts(offsets []uint64, neighbors []uint32) *CSR {
	if neighbors == nil {
		neighbors = []uint32{}
	}
	return &CSR{offsets: offsets, neighbors: neighbors}
}

// Order returns the vertex count.
func (c *CSR) Order() int { return len(c.offsets) - 1 }

// Size returns the edge count.
func (c *CSR) Size() int { return len(c.neighbors) }

// NBytes returns the memory footprint of the offset and neighbor arrays.
func (c *CSR) NBytes() int {
	return len(c.offsets)*offsetBytes + len(c.neighbors)*neighborBytes
}

// Offsets returns the offset array. Callers must not modify it.
func (c *CSR) Offsets() []uint64 { return c.offsets }

// NeighborIDs returns the flat neighbor array. Callers must not modify it.
func (c *CSR) NeighborIDs() []uint32 { return c.neighbors }

// Neighbors returns the out-neighbors of v. Callers must not modify it.
func (c *CSR) Neighbors(v uint32) []uint32 {
	return c.neighbors[c.offsets[v]:c.offsets[v+1]]
}

// Degree returns the out-degree of v.
func (c *CSR) Degree(v uint32) int {
	return int(c.offsets[v+1] - c.offsets[v])
}

// EachEdge calls fn for every edge in vertex order, stopping early if fn
// returns false.
func (c *CSR) EachEdge(fn func(src, dst uint32) bool) {
	for v := 0; v < c.Order(); v++ {
		for _, u := range c.neighbors[c.offsets[v]:c.offsets[v+1]] {
			if !fn(uint32(v), u) {
				return
			}
		}
	}
}

// EdgeIndex expands the graph back into a pair of source/destination arrays,
// one entry per edge, in CSR order.
func (c *CSR) EdgeIndex() (src, dst []uint32) {
	src = make([]uint32, 0, c.Size())
	dst = make([]uint32, 0, c.Size())
	c.EachEdge(func(u, v uint32) bool {
		src = append(src, u)
		dst = append(dst, v)
		return true
	})
	return src, dst
}

// Validate re-checks every structural invariant. Graphs produced by this
// package always pass; it exists for data that crossed a trust boundary.
func (c *CSR) Validate() error {
	return validate(c.offsets, c.neighbors)
}

// SortedCopy returns a copy whose neighbor slices are sorted ascending.
// Multiplicity is preserved.
func (c *CSR) SortedCopy() *CSR {
	neighbors := slices.Clone(c.neighbors)
	for v := 0; v < c.Order(); v++ {
		slices.Sort(neighbors[c.offsets[v]:c.offsets[v+1]])
	}
	return fromParts(slices.Clone(c.offsets), neighbors)
}

// Equal reports whether both graphs have identical arrays, including the
// order of neighbors within each vertex.
func (c *CSR) Equal(o *CSR) bool {
	return slices.Equal(c.offsets, o.offsets) && slices.Equal(c.neighbors, o.neighbors)
}

func (c *CSR) String() string {
	return fmt.Sprintf("CSR(order=%d, size=%d, nbytes=%d)", c.Order(), c.Size(), c.NBytes())
}

func validate(offsets []uint64, neighbors []uint32) error {
	if len(offsets) == 0 {
		return &ValidationError{Invariant: InvOffsetsEmpty, Index: 0, Detail: "offsets must hold order+1 entries"}
	}
	order := len(offsets) - 1
	if order > MaxOrder {
		return &ValidationError{Invariant: InvOrderRange, Index: order, Detail: fmt.Sprintf("order %d exceeds %d", order, uint64(MaxOrder))}
	}
	if offsets[0] != 0 {
		return &ValidationError{Invariant: InvOffsetsStart, Index: 0, Detail: fmt.Sprintf("got %d", offsets[0])}
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return &ValidationError{
				Invariant: InvOffsetsMonotonic,
				Index:     i,
				Detail:    fmt.Sprintf("offsets[%d]=%d < offsets[%d]=%d", i, offsets[i], i-1, offsets[i-1]),
			}
		}
	}
	if offsets[order] != uint64(len(neighbors)) {
		return &ValidationError{
			Invariant: InvOffsetsEnd,
			Index:     order,
			Detail:    fmt.Sprintf("offsets[%d]=%d but %d neighbors supplied", order, offsets[order], len(neighbors)),
		}
	}
	for i, u := range neighbors {
		if uint64(u) >= uint64(order) {
			return &ValidationError{
				Invariant: InvNeighborRange,
				Index:     i,
				Detail:    fmt.Sprintf("neighbor %d with order %d", u, order),
			}
		}
	}
	return nil
}
