// Package npy reads and writes the NumPy .npy array format (versions 1.0,
// 2.0 and 3.0) for the integer and boolean dtypes used by graph data:
// edge indices, vertex masks and permutations. Arrays are streamed; nothing
// requires the payload to fit in memory.
package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Magic prefixes every .npy file.
const Magic = "\x93NUMPY"

// MaxElements bounds the element count a header may declare.
const MaxElements = 1 << 40

var (
	// ErrNotNpy indicates the stream does not start with the .npy magic.
	ErrNotNpy = errors.New("not a .npy stream")
	// ErrUnsupported indicates a valid header this package cannot decode.
	ErrUnsupported = errors.New("unsupported .npy array")
	// ErrValueRange indicates a value that does not fit the requested type.
	ErrValueRange = errors.New("value out of range")
)

// Header is the decoded array description.
type Header struct {
	Major, Minor int
	Descr        string
	FortranOrder bool
	Shape        []int
	// DataOffset is the byte offset of the first element.
	DataOffset int64
}

// Len returns the number of elements, or -1 when the shape exceeds
// MaxElements. Headers returned by ReadHeader are always within bounds.
func (h Header) Len() int {
	n, ok := shapeLen(h.Shape)
	if !ok {
		return -1
	}
	return n
}

// DType is a decoded descr string.
type DType struct {
	Kind  byte // 'u', 'i' or 'b'
	Size  int  // bytes per element
	Order binary.ByteOrder
}

// DType decodes h.Descr.
func (h Header) DType() (DType, error) {
	return ParseDescr(h.Descr)
}

// ParseDescr decodes descr strings such as "<u4", ">i8" and "|b1".
func ParseDescr(descr string) (DType, error) {
	if len(descr) < 3 {
		return DType{}, fmt.Errorf("%w: descr %q", ErrUnsupported, descr)
	}
	var dt DType
	switch descr[0] {
	case '<', '|', '=':
		dt.Order = binary.LittleEndian
	case '>':
		dt.Order = binary.BigEndian
	default:
		return DType{}, fmt.Errorf("%w: byte order in %q", ErrUnsupported, descr)
	}
	dt.Kind = descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return DType{}, fmt.Errorf("%w: descr %q", ErrUnsupported, descr)
	}
	dt.Size = size
	switch {
	case dt.Kind == 'b' && size == 1:
	case (dt.Kind == 'u' || dt.Kind == 'i') && (size == 1 || size == 2 || size == 4 || size == 8):
	default:
		return DType{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
	return dt, nil
}

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadHeader reads the preamble and header dictionary, leaving r positioned
// at the first element.
func ReadHeader(r io.Reader) (Header, error) {
	pre := make([]byte, len(Magic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotNpy, err)
	}
	if string(pre[:len(Magic)]) != Magic {
		return Header{}, ErrNotNpy
	}
	h := Header{Major: int(pre[6]), Minor: int(pre[7])}

	var hlen int
	switch h.Major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Header{}, fmt.Errorf("read header length: %w", err)
		}
		hlen = int(n)
		h.DataOffset = int64(len(pre) + 2 + hlen)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Header{}, fmt.Errorf("read header length: %w", err)
		}
		hlen = int(n)
		h.DataOffset = int64(len(pre) + 4 + hlen)
	default:
		return Header{}, fmt.Errorf("%w: format version %d.%d", ErrUnsupported, h.Major, h.Minor)
	}

	dict := make([]byte, hlen)
	if _, err := io.ReadFull(r, dict); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	if err := parseDict(string(dict), &h); err != nil {
		return Header{}, err
	}
	return h, nil
}

func parseDict(dict string, h *Header) error {
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return fmt.Errorf("%w: header has no descr", ErrUnsupported)
	}
	h.Descr = m[1]

	m = fortranRe.FindStringSubmatch(dict)
	if m == nil {
		return fmt.Errorf("%w: header has no fortran_order", ErrUnsupported)
	}
	h.FortranOrder = m[1] == "True"

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return fmt.Errorf("%w: header has no shape", ErrUnsupported)
	}
	h.Shape = h.Shape[:0]
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSuffix(f, "L"))
		if err != nil || d < 0 {
			return fmt.Errorf("%w: shape entry %q", ErrUnsupported, f)
		}
		h.Shape = append(h.Shape, d)
	}
	if _, ok := shapeLen(h.Shape); !ok {
		return fmt.Errorf("%w: shape %v exceeds %d elements", ErrUnsupported, h.Shape, MaxElements)
	}
	return nil
}

// shapeLen multiplies the dimensions, failing once the product passes
// MaxElements.
func shapeLen(shape []int) (int, bool) {
	n := 1
	for _, d := range shape {
		if d == 0 {
			return 0, true
		}
		if n > MaxElements/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// WriteHeader writes a version 1.0 preamble and header for a C-ordered array,
// padded so the data starts on a 64-byte boundary.
func WriteHeader(w io.Writer, descr string, shape []int) error {
	var dims strings.Builder
	for _, d := range shape {
		dims.WriteString(strconv.Itoa(d))
		dims.WriteString(", ")
	}
	s := dims.String()
	if len(shape) > 1 {
		s = strings.TrimSuffix(s, " ")
		s = strings.TrimSuffix(s, ",")
	} else if len(shape) == 1 {
		s = strings.TrimSuffix(s, " ")
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, s)

	total := len(Magic) + 2 + 2 + len(dict) + 1
	pad := (64 - total%64) % 64
	hlen := len(dict) + pad + 1
	if hlen > 0xFFFF {
		return fmt.Errorf("%w: header too long", ErrUnsupported)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(hlen))
	buf.WriteString(dict)
	buf.Write(bytes.Repeat([]byte{' '}, pad))
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
