package edgelist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sanonone/glzip/pkg/csr"
)

// maxLine bounds a single record. Edge list lines are short; anything longer
// is treated as corruption rather than buffered without limit.
const maxLine = 1 << 16

var (
	errNotNumber = errors.New("not a decimal vertex id")
	errNegative  = errors.New("negative vertex id")
	errIDRange   = errors.New("vertex id exceeds uint32")
	errFields    = errors.New("expected at least two fields")
	errLongLine  = fmt.Errorf("line longer than %d bytes", maxLine)
)

// TextSource decodes one edge per line: "u v", "u,v", "u;v" or "u\tv".
// Columns after the second (weights, timestamps) are ignored. Blank lines and
// lines starting with '#' or '%' are skipped. A first record whose leading
// field is not numeric is taken as a header row.
//
// Offsets in DecodeError refer to the decoded byte stream, which for gzip
// input is the decompressed text.
type TextSource struct {
	path    string
	r       *bufio.Reader
	closer  io.Closer
	offset  int64
	line    int
	records int
}

// NewTextSource decodes r. path is only used in error messages. closer, if
// non-nil, is closed by Close.
func NewTextSource(path string, r io.Reader, closer io.Closer) *TextSource {
	return &TextSource{
		path:   path,
		r:      bufio.NewReaderSize(r, maxLine),
		closer: closer,
	}
}

// Next returns the next edge or io.EOF.
func (s *TextSource) Next() (csr.Edge, error) {
	for {
		start := s.offset
		raw, err := s.r.ReadSlice('\n')
		if len(raw) == 0 && err == io.EOF {
			return csr.Edge{}, io.EOF
		}
		s.offset += int64(len(raw))
		s.line++
		if err != nil && err != io.EOF {
			if errors.Is(err, bufio.ErrBufferFull) {
				err = errLongLine
			}
			return csr.Edge{}, s.decodeErr(start, err)
		}

		rec := bytes.TrimSpace(raw)
		if len(rec) == 0 || rec[0] == '#' || rec[0] == '%' {
			continue
		}
		s.records++

		f0, rest := nextField(rec)
		f1, _ := nextField(rest)
		if len(f0) == 0 || len(f1) == 0 {
			return csr.Edge{}, s.decodeErr(start, errFields)
		}
		u, err := parseID(f0)
		if err != nil {
			if s.records == 1 && errors.Is(err, errNotNumber) {
				continue
			}
			return csr.Edge{}, s.decodeErr(start, fmt.Errorf("source %q: %w", f0, err))
		}
		v, err := parseID(f1)
		if err != nil {
			return csr.Edge{}, s.decodeErr(start, fmt.Errorf("destination %q: %w", f1, err))
		}
		return csr.Edge{Src: u, Dst: v}, nil
	}
}

// Close releases the underlying file, if any.
func (s *TextSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *TextSource) decodeErr(offset int64, err error) error {
	return &csr.DecodeError{Path: s.path, Offset: offset, Line: s.line, Err: err}
}

func isSep(b byte) bool {
	return b == ',' || b == ' ' || b == '\t' || b == ';'
}

// nextField returns the first field of rec and the remainder after it.
// Runs of separators count as one.
func nextField(rec []byte) (field, rest []byte) {
	i := 0
	for i < len(rec) && isSep(rec[i]) {
		i++
	}
	j := i
	for j < len(rec) && !isSep(rec[j]) {
		j++
	}
	return rec[i:j], rec[j:]
}

func parseID(b []byte) (uint32, error) {
	if len(b) > 0 && b[0] == '-' {
		return 0, errNegative
	}
	if len(b) > 0 && b[0] == '+' {
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, errNotNumber
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errNotNumber
		}
		n = n*10 + uint64(c-'0')
		if n > math.MaxUint32 {
			return 0, errIDRange
		}
	}
	return uint32(n), nil
}
