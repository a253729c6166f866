package csr

import "fmt"

// Permutation relabels vertices: p[old] = new. It is a bijection on
// [0, len(p)).
type Permutation []uint32

// Identity returns the permutation that leaves n vertices in place.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = uint32(i)
	}
	return p
}

// Inverse returns q with q[new] = old.
func (p Permutation) Inverse() Permutation {
	q := make(Permutation, len(p))
	for old, nw := range p {
		q[nw] = uint32(old)
	}
	return q
}

// Validate checks that p is a bijection.
func (p Permutation) Validate() error {
	seen := newBitSet(len(p))
	for i, v := range p {
		if int(v) >= len(p) {
			return &ValidationError{Invariant: "permutation target in range", Index: i, Detail: fmt.Sprintf("%d with length %d", v, len(p))}
		}
		if seen.add(v) {
			return &ValidationError{Invariant: "permutation is injective", Index: i, Detail: fmt.Sprintf("%d assigned twice", v)}
		}
	}
	return nil
}

// Remap rewrites ids expressed in the old numbering into the new one, in
// place. It is meant for caller side data such as training index arrays.
// On error ids is left untouched.
func (p Permutation) Remap(ids []uint32) error {
	for i, id := range ids {
		if int(id) >= len(p) {
			return &ValidationError{Invariant: InvNeighborRange, Index: i, Detail: fmt.Sprintf("id %d with order %d", id, len(p))}
		}
	}
	for i, id := range ids {
		ids[i] = p[id]
	}
	return nil
}

// Permute returns the graph relabeled by p. Vertex v becomes p[v]; its
// neighbor slice keeps its order with every id mapped through p.
func (c *CSR) Permute(p Permutation) (*CSR, error) {
	if len(p) != c.Order() {
		return nil, &ShapeError{What: "permutation", Got: len(p), Want: c.Order()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.permute(p, p.Inverse(), 0), nil
}

func (c *CSR) permute(p, inv Permutation, threads int) *CSR {
	order := c.Order()
	offsets := make([]uint64, order+1)
	for nw, old := range inv {
		offsets[nw+1] = offsets[nw] + (c.offsets[int(old)+1] - c.offsets[old])
	}

	neighbors := make([]uint32, len(c.neighbors))
	parallelRange(order, threads, func(lo, hi int) {
		for nw := lo; nw < hi; nw++ {
			old := inv[nw]
			dst := neighbors[offsets[nw]:offsets[nw+1]]
			for j, u := range c.neighbors[c.offsets[old]:c.offsets[int(old)+1]] {
				dst[j] = p[u]
			}
		}
	})
	return fromParts(offsets, neighbors)
}

// EdgePermutation maps edge positions of c to edge positions of reordered,
// where reordered = c.Permute(p) or the graph returned by Optimize together
// with p. The result e satisfies e[oldEdge] = newEdge. p must be a bijection
// and every vertex must keep its degree under p.
func (c *CSR) EdgePermutation(reordered *CSR, p Permutation) ([]uint64, error) {
	if len(p) != c.Order() {
		return nil, &ShapeError{What: "permutation", Got: len(p), Want: c.Order()}
	}
	if reordered.Order() != c.Order() {
		return nil, &ShapeError{What: "reordered order", Got: reordered.Order(), Want: c.Order()}
	}
	if reordered.Size() != c.Size() {
		return nil, &ShapeError{What: "reordered size", Got: reordered.Size(), Want: c.Size()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for old, nw := range p {
		if got, want := reordered.offsets[int(nw)+1]-reordered.offsets[nw], c.offsets[old+1]-c.offsets[old]; got != want {
			return nil, &ValidationError{
				Invariant: "reordered degree matches",
				Index:     old,
				Detail:    fmt.Sprintf("vertex %d maps to %d with degree %d, want %d", old, nw, got, want),
			}
		}
	}
	e := make([]uint64, c.Size())
	parallelRange(c.Order(), 0, func(lo, hi int) {
		for old := lo; old < hi; old++ {
			base := reordered.offsets[p[old]]
			for j := c.offsets[old]; j < c.offsets[old+1]; j++ {
				e[j] = base + (j - c.offsets[old])
			}
		}
	})
	return e, nil
}
