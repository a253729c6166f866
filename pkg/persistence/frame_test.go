package persistence

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := fw.WriteFrame(OpOffsets, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	if err := fw.WriteFrame(OpEnd, nil); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	// Stream decoding.
	r := bytes.NewReader(data)
	op, payload, n, err := ReadFrame(r)
	if err != nil || op != OpOffsets || len(payload) != 8 || n != HeaderSize+8 {
		t.Fatalf("ReadFrame = (%d, %v, %d, %v)", op, payload, n, err)
	}
	op, payload, n, err = ReadFrame(r)
	if err != nil || op != OpEnd || len(payload) != 0 || n != HeaderSize {
		t.Fatalf("ReadFrame end = (%d, %v, %d, %v)", op, payload, n, err)
	}
	if _, _, _, err := ReadFrame(r); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}

	// In-memory decoding yields the same frames.
	op, payload, n, err = ParseFrame(data)
	if err != nil || op != OpOffsets || payload[7] != 8 {
		t.Fatalf("ParseFrame = (%d, %v, %d, %v)", op, payload, n, err)
	}
	op, _, _, err = ParseFrame(data[n:])
	if err != nil || op != OpEnd {
		t.Fatalf("ParseFrame end = (%d, %v)", op, err)
	}
}

func TestFrameCorruption(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteFrame(OpNeighbors, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	flipped := bytes.Clone(data)
	flipped[HeaderSize+2] ^= 0xFF
	if _, _, _, err := ParseFrame(flipped); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("flipped payload: expected ErrChecksumMismatch, got %v", err)
	}
	if _, _, _, err := ReadFrame(bytes.NewReader(flipped)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("flipped payload (stream): expected ErrChecksumMismatch, got %v", err)
	}

	badMagic := bytes.Clone(data)
	badMagic[0] = 0
	if _, _, _, err := ParseFrame(badMagic); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}

	if _, _, _, err := ParseFrame(data[:len(data)-1]); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("truncated payload: expected ErrIncompleteFrame, got %v", err)
	}
	if _, _, _, err := ReadFrame(bytes.NewReader(data[:4])); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("truncated header: expected ErrIncompleteFrame, got %v", err)
	}
}
