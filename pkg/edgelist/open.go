// Package edgelist provides file-backed edge sources for the CSR builder.
// Files are decoded incrementally; none of the decoders loads a whole file.
package edgelist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sanonone/glzip/pkg/csr"
)

// Source is an edge source backed by an open file.
type Source interface {
	csr.EdgeSource
	io.Closer
}

// Open returns a streaming decoder for path, chosen by extension:
// ".npy" for NumPy edge indices, "*.gz" for gzip-compressed text, anything
// else for plain text (csv, tsv, whitespace separated).
func Open(path string) (Source, error) {
	var (
		src Source
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		src, err = OpenNpy(path)
	case ".gz":
		src, err = OpenGzip(path)
	default:
		src, err = OpenText(path)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenText opens a plain text edge list.
func OpenText(path string) (*TextSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewTextSource(path, f, f), nil
}

// OpenGzip opens a gzip-compressed text edge list.
func OpenGzip(path string) (*TextSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &csr.DecodeError{Path: path, Offset: 0, Err: fmt.Errorf("gzip header: %w", err)}
	}
	return NewTextSource(path, gz, closers{gz, f}), nil
}

// closers closes every element, returning the first error.
type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build opens path and runs b over it. It is the streamed counterpart of
// building from an in-memory source.
func Build(b *csr.Builder, path string) (*csr.CSR, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return b.Build(src)
}
