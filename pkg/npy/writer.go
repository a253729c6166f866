package npy

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// WriteUint32File writes data as a 1-D '<u4' array.
func WriteUint32File(path string, data []uint32) error {
	return writeFile(path, "<u4", len(data), func(w *bufio.Writer) error {
		var b [4]byte
		for _, v := range data {
			binary.LittleEndian.PutUint32(b[:], v)
			if _, err := w.Write(b[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteBoolsFile writes data as a 1-D '|b1' array.
func WriteBoolsFile(path string, data []bool) error {
	return writeFile(path, "|b1", len(data), func(w *bufio.Writer) error {
		for _, v := range data {
			var b byte
			if v {
				b = 1
			}
			if err := w.WriteByte(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEdgeIndexFile writes a (2, N) '<i8' array, the layout PyTorch
// Geometric uses for edge_index.
func WriteEdgeIndexFile(path string, src, dst []uint32) error {
	if len(src) != len(dst) {
		return fmt.Errorf("edge index rows differ: %d vs %d", len(src), len(dst))
	}
	return writeFileShape(path, "<i8", []int{2, len(src)}, func(w *bufio.Writer) error {
		var b [8]byte
		for _, row := range [][]uint32{src, dst} {
			for _, v := range row {
				binary.LittleEndian.PutUint64(b[:], uint64(v))
				if _, err := w.Write(b[:]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeFile(path, descr string, n int, body func(*bufio.Writer) error) error {
	return writeFileShape(path, descr, []int{n}, body)
}

// writeFileShape writes to a temporary file in the same directory and
// renames it into place once the payload is flushed.
func writeFileShape(path, descr string, shape []int, body func(*bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriterSize(tmp, 1<<16)
	if err := WriteHeader(w, descr, shape); err != nil {
		tmp.Close()
		return err
	}
	if err := body(w); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
