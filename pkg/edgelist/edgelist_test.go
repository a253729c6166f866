package edgelist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/sanonone/glzip/pkg/csr"
	"github.com/sanonone/glzip/pkg/npy"
)

func drain(t *testing.T, src csr.EdgeSource) ([]csr.Edge, error) {
	t.Helper()
	var edges []csr.Edge
	for {
		e, err := src.Next()
		if err == io.EOF {
			return edges, nil
		}
		if err != nil {
			return edges, err
		}
		edges = append(edges, e)
	}
}

func TestTextSource(t *testing.T) {
	doc := "% matrix market style comment\n" +
		"source,target,weight\n" +
		"0,1,0.5\n" +
		"\n" +
		"# comment\n" +
		"2 3\n" +
		"4\t5\t1700000000\n" +
		"  6 ;  7  \n" +
		"4294967295 0" // no trailing newline
	src := NewTextSource("mem", strings.NewReader(doc), nil)
	edges, err := drain(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []csr.Edge{{Src: 0, Dst: 1}, {Src: 2, Dst: 3}, {Src: 4, Dst: 5}, {Src: 6, Dst: 7}, {Src: 4294967295, Dst: 0}}
	if !slices.Equal(edges, want) {
		t.Errorf("edges = %v, want %v", edges, want)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close with nil closer: %v", err)
	}
}

func TestTextSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		offset int64
		line   int
		cause  error
	}{
		{"bad destination", "0 1\n1 x\n", 4, 2, errNotNumber},
		{"negative", "0 1\n# c\n-1 2\n", 8, 3, errNegative},
		{"overflow", "4294967296 1\n", 0, 1, errIDRange},
		{"single field", "0 1\n5\n", 4, 2, errFields},
		{"header only counts once", "a b\nc d\n", 4, 2, errNotNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := drain(t, NewTextSource("edges.txt", strings.NewReader(tt.doc), nil))
			var derr *csr.DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if derr.Offset != tt.offset || derr.Line != tt.line {
				t.Errorf("position = byte %d line %d, want byte %d line %d", derr.Offset, derr.Line, tt.offset, tt.line)
			}
			if !errors.Is(err, tt.cause) || !errors.Is(err, csr.ErrDecode) {
				t.Errorf("error %v does not wrap %v", err, tt.cause)
			}
		})
	}
}

func TestTextSourceLongLine(t *testing.T) {
	doc := "0 1\n" + strings.Repeat("9", maxLine+10) + " 1\n"
	_, err := drain(t, NewTextSource("long.txt", strings.NewReader(doc), nil))
	if !errors.Is(err, errLongLine) {
		t.Errorf("expected errLongLine, got %v", err)
	}
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenByExtension(t *testing.T) {
	dir := t.TempDir()
	doc := "0 1\n1 2\n2 0\n"
	want := []csr.Edge{{Src: 0, Dst: 1}, {Src: 1, Dst: 2}, {Src: 2, Dst: 0}}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	npyPath := filepath.Join(dir, "edges.npy")
	if err := npy.WriteEdgeIndexFile(npyPath, []uint32{0, 1, 2}, []uint32{1, 2, 0}); err != nil {
		t.Fatal(err)
	}

	paths := []string{
		writeFile(t, filepath.Join(dir, "edges.txt"), []byte(doc)),
		writeFile(t, filepath.Join(dir, "edges.tsv.gz"), gz.Bytes()),
		npyPath,
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			src, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer src.Close()
			edges, err := drain(t, src)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(edges, want) {
				t.Errorf("edges = %v, want %v", edges, want)
			}
		})
	}
}

func TestOpenGzipCorrupt(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "bad.gz"), []byte("plain text, not gzip"))
	if _, err := Open(path); !errors.Is(err, csr.ErrDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

// writeNpy writes a raw 2-D array with an explicit memory order and returns
// the byte offset of the first element.
func writeNpy(t *testing.T, path, descr string, fortran bool, shape [2]int, values []int64, order binary.ByteOrder) int64 {
	t.Helper()
	fo := "False"
	if fortran {
		fo = "True"
	}
	dict := "{'descr': '" + descr + "', 'fortran_order': " + fo + ", 'shape': (" +
		strconv.Itoa(shape[0]) + ", " + strconv.Itoa(shape[1]) + "), }"
	total := len(npy.Magic) + 4 + len(dict) + 1
	dict += strings.Repeat(" ", (64-total%64)%64) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npy.Magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	base := int64(buf.Len())
	for _, v := range values {
		switch descr[2] {
		case '4':
			_ = binary.Write(&buf, order, int32(v))
		default:
			_ = binary.Write(&buf, order, v)
		}
	}
	writeFile(t, path, buf.Bytes())
	return base
}

func TestNpyLayouts(t *testing.T) {
	dir := t.TempDir()
	want := []csr.Edge{{Src: 0, Dst: 3}, {Src: 1, Dst: 2}, {Src: 2, Dst: 1}}

	tests := []struct {
		name    string
		descr   string
		fortran bool
		shape   [2]int
		values  []int64
		order   binary.ByteOrder
	}{
		// Rows are sources then destinations.
		{"2xN C order", "<i8", false, [2]int{2, 3}, []int64{0, 1, 2, 3, 2, 1}, binary.LittleEndian},
		// Pairs stored contiguously.
		{"2xN Fortran order", "<i4", true, [2]int{2, 3}, []int64{0, 3, 1, 2, 2, 1}, binary.LittleEndian},
		{"Nx2 C order", ">i8", false, [2]int{3, 2}, []int64{0, 3, 1, 2, 2, 1}, binary.BigEndian},
		// Columns stored contiguously.
		{"Nx2 Fortran order", "<u4", true, [2]int{3, 2}, []int64{0, 1, 2, 3, 2, 1}, binary.LittleEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".npy")
			writeNpy(t, path, tt.descr, tt.fortran, tt.shape, tt.values, tt.order)
			src, err := OpenNpy(path)
			if err != nil {
				t.Fatalf("OpenNpy failed: %v", err)
			}
			defer src.Close()
			if src.Len() != 3 {
				t.Errorf("Len = %d, want 3", src.Len())
			}
			edges, err := drain(t, src)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(edges, want) {
				t.Errorf("edges = %v, want %v", edges, want)
			}
		})
	}
}

func TestNpyErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "neg.npy")
	base := writeNpy(t, path, "<i8", false, [2]int{2, 2}, []int64{0, 1, 1, -5}, binary.LittleEndian)
	src, err := OpenNpy(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	_, err = drain(t, src)
	var derr *csr.DecodeError
	if !errors.As(err, &derr) || !errors.Is(err, errNegative) {
		t.Fatalf("expected negative id decode error, got %v", err)
	}
	// Element (1, 1) of a C-ordered (2, 2) int64 array.
	if want := base + 3*8; derr.Offset != want {
		t.Errorf("Offset = %d, want %d", derr.Offset, want)
	}

	path = filepath.Join(dir, "short.npy")
	writeNpy(t, path, "<i8", false, [2]int{2, 3}, []int64{0, 1, 2, 1}, binary.LittleEndian)
	src2, err := OpenNpy(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src2.Close()
	if _, err := drain(t, src2); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated array: expected io.ErrUnexpectedEOF, got %v", err)
	}

	path = filepath.Join(dir, "shape.npy")
	writeNpy(t, path, "<i8", false, [2]int{3, 3}, make([]int64, 9), binary.LittleEndian)
	if _, err := OpenNpy(path); !errors.Is(err, npy.ErrUnsupported) {
		t.Errorf("3x3 array: expected ErrUnsupported, got %v", err)
	}
}

func TestBuildFromFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "edges.csv"), []byte("u,v\n0,1\n0,2\n1,2\n"))
	g, err := Build(csr.NewBuilder(csr.BuilderConfig{EdgesPerChunk: 2, NumThreads: 2}), path)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.Offsets(), []uint64{0, 2, 3, 3}) {
		t.Errorf("offsets = %v", g.Offsets())
	}

	bad := writeFile(t, filepath.Join(t.TempDir(), "bad.csv"), []byte("0,1\n0,-2\n"))
	_, err = Build(csr.NewBuilder(csr.BuilderConfig{}), bad)
	var derr *csr.DecodeError
	if !errors.As(err, &derr) || derr.Line != 2 || derr.Offset != 4 {
		t.Errorf("expected decode error at line 2 byte 4, got %v", err)
	}
}
