package csr

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("malformed edge record")
	// ErrShape is matched by every ShapeError.
	ErrShape = errors.New("shape mismatch")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("csr invariant violated")
	// ErrConfigConflict is matched by every ConfigConflict.
	ErrConfigConflict = errors.New("builder configuration conflict")
)

// DecodeError reports a malformed record in a streamed edge source.
// Offset is the byte offset of the record in the decoded stream; Line is
// 1-based and only set by line oriented decoders.
type DecodeError struct {
	Path   string
	Offset int64
	Line   int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decode %s: line %d (byte %d): %v", e.Path, e.Line, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s: byte %d: %v", e.Path, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ShapeError reports arrays whose lengths do not line up. When Detail is
// set it replaces the length comparison in the message.
type ShapeError struct {
	What   string
	Got    int
	Want   int
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("shape mismatch: %s=%d: %s", e.What, e.Got, e.Detail)
	}
	return fmt.Sprintf("shape mismatch: %s has length %d, want %d", e.What, e.Got, e.Want)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// ValidationError names the CSR invariant a supplied array violates.
type ValidationError struct {
	Invariant string
	Index     int
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid csr: %s (at index %d): %s", e.Invariant, e.Index, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invariant names used in ValidationError.
const (
	InvOffsetsEmpty     = "offsets non-empty"
	InvOffsetsStart     = "offsets[0] == 0"
	InvOffsetsMonotonic = "offsets non-decreasing"
	InvOffsetsEnd       = "offsets[order] == size"
	InvNeighborRange    = "neighbor id in [0, order)"
	InvOrderRange       = "order fits uint32 vertex ids"
)

// ConfigConflict describes a chunking knob that was overridden or could not
// be honored. It is reported, not treated as a build failure.
type ConfigConflict struct {
	Field  string
	Detail string
}

func (e *ConfigConflict) Error() string {
	return fmt.Sprintf("config conflict on %s: %s", e.Field, e.Detail)
}

func (e *ConfigConflict) Is(target error) bool { return target == ErrConfigConflict }
