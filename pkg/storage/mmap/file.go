// Package mmap maps files read-only into memory.
package mmap

import (
	"fmt"
	"os"
)

// File is a read-only memory-mapped file. Data aliases the mapping and is
// invalid after Close.
type File struct {
	f    *os.File
	Data []byte
}

// Open maps the whole of path. An empty file yields a File with nil Data,
// since a zero-length mapping is rejected by the OS.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &File{f: f}, nil
	}
	if int64(int(size)) != size {
		f.Close()
		return nil, fmt.Errorf("%s: %d bytes exceeds the address space", path, size)
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	return &File{f: f, Data: data}, nil
}

// Len returns the mapped size in bytes.
func (m *File) Len() int { return len(m.Data) }

// Close unmaps the data and closes the file.
func (m *File) Close() error {
	var firstErr error
	if m.Data != nil {
		if err := munmapFile(m.Data); err != nil {
			firstErr = err
		}
		m.Data = nil
	}
	if m.f != nil {
		if err := m.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.f = nil
	}
	return firstErr
}
