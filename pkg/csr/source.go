package csr

import "io"

// EdgeSource is a lazy, finite, fallible sequence of directed edges.
// Next returns io.EOF once the sequence is exhausted; any other error is a
// failure of the underlying input and ends the sequence.
//
// Sources that own resources also implement io.Closer. Builders never close
// the sources they consume.
type EdgeSource interface {
	Next() (Edge, error)
}

// SliceSource serves edges from memory. It never fails.
type SliceSource struct {
	edges []Edge
	pos   int
}

// NewSliceSource wraps an already materialized edge list. The slice is not
// copied.
func NewSliceSource(edges []Edge) *SliceSource {
	return &SliceSource{edges: edges}
}

func (s *SliceSource) Next() (Edge, error) {
	if s.pos >= len(s.edges) {
		return Edge{}, io.EOF
	}
	e := s.edges[s.pos]
	s.pos++
	return e, nil
}

// PairSource serves edges from a dense src/dst index pair.
type PairSource struct {
	src, dst []uint32
	pos      int
}

// NewPairSource wraps an edge index. Mismatched lengths are a ShapeError.
func NewPairSource(src, dst []uint32) (*PairSource, error) {
	if len(src) != len(dst) {
		return nil, &ShapeError{What: "dst", Got: len(dst), Want: len(src)}
	}
	return &PairSource{src: src, dst: dst}, nil
}

func (s *PairSource) Next() (Edge, error) {
	if s.pos >= len(s.src) {
		return Edge{}, io.EOF
	}
	e := Edge{Src: s.src[s.pos], Dst: s.dst[s.pos]}
	s.pos++
	return e, nil
}
