package npy

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
)

// ValueReader streams integer elements of a single dtype.
type ValueReader struct {
	r    *bufio.Reader
	dt   DType
	left int
	buf  [8]byte
}

// NewValueReader reads n elements of type dt from r.
func NewValueReader(r io.Reader, dt DType, n int) *ValueReader {
	return &ValueReader{r: bufio.NewReaderSize(r, 1<<16), dt: dt, left: n}
}

// Remaining returns the number of elements not yet read.
func (vr *ValueReader) Remaining() int { return vr.left }

// Next returns the next element as int64. io.EOF marks the end of the
// declared element count; a shorter stream yields io.ErrUnexpectedEOF.
// Unsigned 8-byte values above math.MaxInt64 fail with ErrValueRange.
func (vr *ValueReader) Next() (int64, error) {
	if vr.left == 0 {
		return 0, io.EOF
	}
	b := vr.buf[:vr.dt.Size]
	if _, err := io.ReadFull(vr.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	vr.left--

	o := vr.dt.Order
	switch vr.dt.Size {
	case 1:
		if vr.dt.Kind == 'i' {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		if vr.dt.Kind == 'i' {
			return int64(int16(o.Uint16(b))), nil
		}
		return int64(o.Uint16(b)), nil
	case 4:
		if vr.dt.Kind == 'i' {
			return int64(int32(o.Uint32(b))), nil
		}
		return int64(o.Uint32(b)), nil
	default:
		u := o.Uint64(b)
		if vr.dt.Kind == 'i' {
			return int64(u), nil
		}
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrValueRange, u)
		}
		return int64(u), nil
	}
}

// ReadBoolsFile loads a 1-D boolean (or uint8 0/1) array, typically a
// vertex mask.
func ReadBoolsFile(path string) ([]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(h.Shape) != 1 {
		return nil, fmt.Errorf("%s: %w: mask must be 1-D, got shape %v", path, ErrUnsupported, h.Shape)
	}
	dt, err := h.DType()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vr := NewValueReader(f, dt, h.Len())
	out := make([]bool, 0, preallocLen(f, h, dt))
	for {
		v, err := vr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: element %d: %w", path, len(out), err)
		}
		out = append(out, v != 0)
	}
}

// ReadUint32File loads a 1-D integer array whose values fit uint32, such as
// a permutation or an index list.
func ReadUint32File(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(h.Shape) != 1 {
		return nil, fmt.Errorf("%s: %w: expected 1-D array, got shape %v", path, ErrUnsupported, h.Shape)
	}
	dt, err := h.DType()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vr := NewValueReader(f, dt, h.Len())
	out := make([]uint32, 0, preallocLen(f, h, dt))
	for {
		v, err := vr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: element %d: %w", path, len(out), err)
		}
		if v < 0 || v > math.MaxUint32 {
			return nil, fmt.Errorf("%s: element %d: %w: %d", path, len(out), ErrValueRange, v)
		}
		out = append(out, uint32(v))
	}
}

// preallocLen caps the declared element count by what the file can hold, so
// a corrupt header cannot force a huge allocation.
func preallocLen(f *os.File, h Header, dt DType) int {
	n := h.Len()
	info, err := f.Stat()
	if err != nil {
		return 0
	}
	avail := (info.Size() - h.DataOffset) / int64(dt.Size)
	if avail < 0 {
		return 0
	}
	if int64(n) > avail {
		return int(avail)
	}
	return n
}
