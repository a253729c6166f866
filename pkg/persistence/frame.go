package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the frame layer of the .csr format.
const (
	// MagicByte marks the start of every frame.
	MagicByte = 0xA5

	// HeaderSize is the fixed frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10
)

// Frame op codes.
const (
	OpHeader    byte = 0x01
	OpOffsets   byte = 0x02
	OpNeighbors byte = 0x03
	OpEnd       byte = 0x04
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not a .csr file.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within a frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended in the middle of a frame.
	ErrIncompleteFrame = errors.New("incomplete frame")
)

// FrameWriter writes checksummed frames to an io.Writer.
type FrameWriter struct {
	w      io.Writer
	header [HeaderSize]byte
}

// NewFrameWriter wraps w. Use a bufio.Writer for file output so header and
// payload share a syscall.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes payload as one frame.
// Frame Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)]
func (fw *FrameWriter) WriteFrame(op byte, payload []byte) error {
	fw.header[0] = MagicByte
	fw.header[1] = op
	binary.LittleEndian.PutUint32(fw.header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fw.header[6:10], crc32.ChecksumIEEE(payload))

	if _, err := fw.w.Write(fw.header[:]); err != nil {
		return err
	}
	if _, err := fw.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads the next frame from r and verifies magic and checksum.
// It returns the op code, the payload and the bytes consumed. A clean end of
// stream before a frame header is io.EOF.
func ReadFrame(r io.Reader) (byte, []byte, int, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, 0, io.EOF
		}
		return 0, nil, 0, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, HeaderSize, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return 0, nil, HeaderSize + int(length), ErrChecksumMismatch
	}
	return header[1], payload, HeaderSize + int(length), nil
}

// ParseFrame is ReadFrame over an in-memory buffer. The payload aliases
// data; nothing is copied.
func ParseFrame(data []byte) (byte, []byte, int, error) {
	if len(data) == 0 {
		return 0, nil, 0, io.EOF
	}
	if len(data) < HeaderSize {
		return 0, nil, 0, ErrIncompleteFrame
	}
	if data[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}
	length := int(binary.LittleEndian.Uint32(data[2:6]))
	expectedCRC := binary.LittleEndian.Uint32(data[6:10])
	if len(data)-HeaderSize < length {
		return 0, nil, HeaderSize, ErrIncompleteFrame
	}
	payload := data[HeaderSize : HeaderSize+length]
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return 0, nil, HeaderSize + length, ErrChecksumMismatch
	}
	return data[1], payload, HeaderSize + length, nil
}
