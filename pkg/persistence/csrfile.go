// Package persistence stores CSR graphs in the .csr file format: a sequence
// of CRC32-checked frames holding a header, the offset array, the neighbor
// array and an end marker. Arrays are split over many frames so a single
// frame never exceeds a few megabytes.
package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sanonone/glzip/pkg/csr"
	"github.com/sanonone/glzip/pkg/metrics"
	"github.com/sanonone/glzip/pkg/storage/mmap"
)

const (
	// FileMagic opens the header frame payload.
	FileMagic = "GLZC"
	// FileVersion is the current format version.
	FileVersion = 1

	headerPayloadSize = 4 + 4 + 8 + 8

	// valuesPerFrame bounds the array entries carried by one frame.
	valuesPerFrame = 1 << 20
)

var (
	// ErrBadHeader indicates a missing or malformed header frame.
	ErrBadHeader = errors.New("bad .csr header")
	// ErrUnexpectedFrame indicates frames out of order or overflowing the
	// declared array lengths.
	ErrUnexpectedFrame = errors.New("unexpected frame")
)

// Save writes c to path atomically: the file is written next to path and
// renamed once complete.
func Save(path string, c *csr.CSR) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create csr file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := Write(bw, c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	slog.Info("[Persistence] CSR saved", "path", path, "order", c.Order(), "size", c.Size())
	return nil
}

// Write encodes c as a frame sequence.
func Write(w io.Writer, c *csr.CSR) error {
	fw := NewFrameWriter(w)

	header := make([]byte, headerPayloadSize)
	copy(header[0:4], FileMagic)
	binary.LittleEndian.PutUint32(header[4:8], FileVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(c.Order()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(c.Size()))
	if err := fw.WriteFrame(OpHeader, header); err != nil {
		return err
	}

	buf := make([]byte, valuesPerFrame*8)
	offsets := c.Offsets()
	for i := 0; i < len(offsets); i += valuesPerFrame {
		run := offsets[i:min(i+valuesPerFrame, len(offsets))]
		p := buf[:len(run)*8]
		for j, v := range run {
			binary.LittleEndian.PutUint64(p[j*8:], v)
		}
		if err := fw.WriteFrame(OpOffsets, p); err != nil {
			return err
		}
	}

	neighbors := c.NeighborIDs()
	for i := 0; i < len(neighbors); i += valuesPerFrame {
		run := neighbors[i:min(i+valuesPerFrame, len(neighbors))]
		p := buf[:len(run)*4]
		for j, v := range run {
			binary.LittleEndian.PutUint32(p[j*4:], v)
		}
		if err := fw.WriteFrame(OpNeighbors, p); err != nil {
			return err
		}
	}

	return fw.WriteFrame(OpEnd, nil)
}

// Load memory-maps path and decodes it. The returned graph owns its memory;
// the mapping is released before Load returns. Invariants are re-validated.
func Load(path string) (*csr.CSR, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	data := m.Data
	d := newDecoder(len(data))
	for pos := 0; ; {
		op, payload, n, err := ParseFrame(data[pos:])
		if err == io.EOF {
			return nil, fmt.Errorf("%s: %w: missing end frame", path, ErrIncompleteFrame)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: frame at byte %d: %w", path, pos, err)
		}
		pos += n
		done, err := d.apply(op, payload)
		if err != nil {
			return nil, fmt.Errorf("%s: frame at byte %d: %w", path, pos-n, err)
		}
		if done {
			g, err := d.finish()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			metrics.GraphBytes.WithLabelValues("load").Set(float64(g.NBytes()))
			return g, nil
		}
	}
}

// Read decodes a frame sequence from a stream.
func Read(r io.Reader) (*csr.CSR, error) {
	d := newDecoder(-1)
	for {
		op, payload, _, err := ReadFrame(r)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing end frame", ErrIncompleteFrame)
		}
		if err != nil {
			return nil, err
		}
		done, err := d.apply(op, payload)
		if err != nil {
			return nil, err
		}
		if done {
			return d.finish()
		}
	}
}

// decoder accumulates frames in the order header, offsets, neighbors, end.
type decoder struct {
	limit     int // bytes available, -1 when unknown; caps preallocation
	seenHdr   bool
	order     uint64
	size      uint64
	offsets   []uint64
	neighbors []uint32
}

func newDecoder(limit int) *decoder {
	return &decoder{limit: limit}
}

func (d *decoder) capFor(n uint64, width int) int {
	if d.limit >= 0 && n > uint64(d.limit/width) {
		return d.limit / width
	}
	if n > valuesPerFrame*64 && d.limit < 0 {
		return valuesPerFrame * 64
	}
	return int(n)
}

func (d *decoder) apply(op byte, payload []byte) (bool, error) {
	if !d.seenHdr {
		if op != OpHeader {
			return false, fmt.Errorf("%w: first frame has op %#x", ErrBadHeader, op)
		}
		if len(payload) != headerPayloadSize || string(payload[0:4]) != FileMagic {
			return false, ErrBadHeader
		}
		if v := binary.LittleEndian.Uint32(payload[4:8]); v != FileVersion {
			return false, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, v)
		}
		d.order = binary.LittleEndian.Uint64(payload[8:16])
		d.size = binary.LittleEndian.Uint64(payload[16:24])
		if d.order > csr.MaxOrder {
			return false, fmt.Errorf("%w: order %d", ErrBadHeader, d.order)
		}
		d.offsets = make([]uint64, 0, d.capFor(d.order+1, 8))
		d.neighbors = make([]uint32, 0, d.capFor(d.size, 4))
		d.seenHdr = true
		return false, nil
	}

	switch op {
	case OpOffsets:
		if len(d.neighbors) > 0 || len(payload)%8 != 0 || uint64(len(d.offsets)+len(payload)/8) > d.order+1 {
			return false, fmt.Errorf("%w: offsets frame of %d bytes", ErrUnexpectedFrame, len(payload))
		}
		for i := 0; i < len(payload); i += 8 {
			d.offsets = append(d.offsets, binary.LittleEndian.Uint64(payload[i:]))
		}
	case OpNeighbors:
		if uint64(len(d.offsets)) != d.order+1 || len(payload)%4 != 0 || uint64(len(d.neighbors)+len(payload)/4) > d.size {
			return false, fmt.Errorf("%w: neighbors frame of %d bytes", ErrUnexpectedFrame, len(payload))
		}
		for i := 0; i < len(payload); i += 4 {
			d.neighbors = append(d.neighbors, binary.LittleEndian.Uint32(payload[i:]))
		}
	case OpEnd:
		return true, nil
	default:
		return false, fmt.Errorf("%w: op %#x", ErrUnexpectedFrame, op)
	}
	return false, nil
}

func (d *decoder) finish() (*csr.CSR, error) {
	if uint64(len(d.offsets)) != d.order+1 || uint64(len(d.neighbors)) != d.size {
		return nil, fmt.Errorf("%w: got %d offsets and %d neighbors, header declares order %d size %d",
			ErrIncompleteFrame, len(d.offsets), len(d.neighbors), d.order, d.size)
	}
	return csr.TryFromCSROwned(d.offsets, d.neighbors)
}
