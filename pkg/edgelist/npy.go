package edgelist

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sanonone/glzip/pkg/csr"
	"github.com/sanonone/glzip/pkg/npy"
)

// NpySource streams edges from a 2-D integer .npy array of shape (2, N)
// (the PyTorch Geometric edge_index layout) or (N, 2). Depending on shape and
// memory order the sources and destinations are either two contiguous runs,
// read through two section readers, or interleaved pairs.
type NpySource struct {
	path     string
	f        *os.File
	src, dst *npy.ValueReader
	split    bool // sources and destinations are separate runs
	size     int64
	base     int64 // byte offset of the first element
	n        int
	idx      int
}

// OpenNpy opens an edge index stored as .npy.
func OpenNpy(path string) (*NpySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, err := newNpySource(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newNpySource(path string, f *os.File) (*NpySource, error) {
	h, err := npy.ReadHeader(f)
	if err != nil {
		return nil, &csr.DecodeError{Path: path, Offset: 0, Err: err}
	}
	dt, err := h.DType()
	if err != nil {
		return nil, &csr.DecodeError{Path: path, Offset: 0, Err: err}
	}
	if dt.Kind != 'u' && dt.Kind != 'i' {
		return nil, &csr.DecodeError{Path: path, Offset: 0, Err: fmt.Errorf("%w: edge index dtype %q", npy.ErrUnsupported, h.Descr)}
	}
	if len(h.Shape) != 2 || (h.Shape[0] != 2 && h.Shape[1] != 2) {
		return nil, &csr.DecodeError{Path: path, Offset: 0, Err: fmt.Errorf("%w: edge index shape %v, want (2, N) or (N, 2)", npy.ErrUnsupported, h.Shape)}
	}

	s := &NpySource{path: path, f: f, size: int64(dt.Size), base: h.DataOffset}
	if h.Shape[0] == 2 {
		s.n = h.Shape[1]
		s.split = !h.FortranOrder
	} else {
		s.n = h.Shape[0]
		s.split = h.FortranOrder
	}

	if s.split {
		run := int64(s.n) * s.size
		s.src = npy.NewValueReader(io.NewSectionReader(f, s.base, run), dt, s.n)
		s.dst = npy.NewValueReader(io.NewSectionReader(f, s.base+run, run), dt, s.n)
	} else {
		s.src = npy.NewValueReader(io.NewSectionReader(f, s.base, 2*int64(s.n)*s.size), dt, 2*s.n)
		s.dst = s.src
	}
	return s, nil
}

// Len returns the number of edges declared by the header.
func (s *NpySource) Len() int { return s.n }

// Next returns the next edge or io.EOF.
func (s *NpySource) Next() (csr.Edge, error) {
	if s.idx >= s.n {
		return csr.Edge{}, io.EOF
	}
	u, err := s.value(s.src, s.srcOffset())
	if err != nil {
		return csr.Edge{}, err
	}
	v, err := s.value(s.dst, s.dstOffset())
	if err != nil {
		return csr.Edge{}, err
	}
	s.idx++
	return csr.Edge{Src: u, Dst: v}, nil
}

// Close closes the file.
func (s *NpySource) Close() error { return s.f.Close() }

func (s *NpySource) srcOffset() int64 {
	if s.split {
		return s.base + int64(s.idx)*s.size
	}
	return s.base + 2*int64(s.idx)*s.size
}

func (s *NpySource) dstOffset() int64 {
	if s.split {
		return s.base + (int64(s.n)+int64(s.idx))*s.size
	}
	return s.base + (2*int64(s.idx)+1)*s.size
}

func (s *NpySource) value(vr *npy.ValueReader, offset int64) (uint32, error) {
	x, err := vr.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, &csr.DecodeError{Path: s.path, Offset: offset, Err: err}
	}
	if x < 0 {
		return 0, &csr.DecodeError{Path: s.path, Offset: offset, Err: fmt.Errorf("%w: %d", errNegative, x)}
	}
	if x > math.MaxUint32 {
		return 0, &csr.DecodeError{Path: s.path, Offset: offset, Err: fmt.Errorf("%w: %d", errIDRange, x)}
	}
	return uint32(x), nil
}
