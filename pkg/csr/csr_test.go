package csr

import (
	"errors"
	"slices"
	"testing"
)

func TestTryFromEdgeIndex(t *testing.T) {
	g, err := TryFromEdgeIndex([]uint32{0, 0, 1}, []uint32{1, 2, 2})
	if err != nil {
		t.Fatalf("TryFromEdgeIndex failed: %v", err)
	}
	if !slices.Equal(g.Offsets(), []uint64{0, 2, 3, 3}) {
		t.Errorf("offsets = %v, want [0 2 3 3]", g.Offsets())
	}
	if !slices.Equal(g.NeighborIDs(), []uint32{1, 2, 2}) {
		t.Errorf("neighbors = %v, want [1 2 2]", g.NeighborIDs())
	}
	if g.Order() != 3 || g.Size() != 3 {
		t.Errorf("order/size = %d/%d, want 3/3", g.Order(), g.Size())
	}
	if g.NBytes() != 8*4+4*3 {
		t.Errorf("NBytes = %d, want %d", g.NBytes(), 8*4+4*3)
	}
	if got := g.String(); got != "CSR(order=3, size=3, nbytes=44)" {
		t.Errorf("String() = %q", got)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestTryFromEdgeIndexStable(t *testing.T) {
	// Neighbors keep input order, duplicates and self loops survive.
	src := []uint32{2, 0, 2, 2, 0}
	dst := []uint32{1, 0, 0, 1, 2}
	g, err := TryFromEdgeIndex(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Neighbors(2); !slices.Equal(got, []uint32{1, 0, 1}) {
		t.Errorf("Neighbors(2) = %v, want [1 0 1]", got)
	}
	if got := g.Neighbors(0); !slices.Equal(got, []uint32{0, 2}) {
		t.Errorf("Neighbors(0) = %v, want [0 2]", got)
	}
	if g.Degree(1) != 0 {
		t.Errorf("Degree(1) = %d, want 0", g.Degree(1))
	}

	sorted := g.SortedCopy()
	if got := sorted.Neighbors(2); !slices.Equal(got, []uint32{0, 1, 1}) {
		t.Errorf("sorted Neighbors(2) = %v", got)
	}
	// The receiver keeps its order.
	if got := g.Neighbors(2); !slices.Equal(got, []uint32{1, 0, 1}) {
		t.Errorf("SortedCopy modified the receiver: %v", got)
	}
}

func TestTryFromEdgeIndexErrors(t *testing.T) {
	_, err := TryFromEdgeIndex([]uint32{0, 1}, []uint32{1})
	var shape *ShapeError
	if !errors.As(err, &shape) || !errors.Is(err, ErrShape) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if shape.Got != 1 || shape.Want != 2 {
		t.Errorf("unexpected shape error fields: %+v", shape)
	}

	_, err = TryFromEdgeIndexOrder(2, []uint32{0, 1}, []uint32{1, 2})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Invariant != InvNeighborRange || verr.Index != 1 {
		t.Errorf("expected neighbor range violation at edge 1, got %v", err)
	}
}

func TestEmptyGraph(t *testing.T) {
	for name, g := range map[string]*CSR{
		"New":              New(),
		"TryFromEdgeIndex": mustCSR(TryFromEdgeIndex(nil, nil)),
	} {
		if g.Order() != 0 || g.Size() != 0 || g.NBytes() != 8 {
			t.Errorf("%s: got %v, want order 0 size 0 nbytes 8", name, g)
		}
		if !slices.Equal(g.Offsets(), []uint64{0}) {
			t.Errorf("%s: offsets = %v", name, g.Offsets())
		}
	}
}

func TestTryFromCSR(t *testing.T) {
	tests := []struct {
		name      string
		offsets   []uint64
		indices   []uint32
		invariant string // empty means valid
	}{
		{"valid", []uint64{0, 2, 3, 3}, []uint32{1, 2, 2}, ""},
		{"empty graph", []uint64{0}, nil, ""},
		{"isolated vertices", []uint64{0, 0, 0}, nil, ""},
		{"no offsets", nil, nil, InvOffsetsEmpty},
		{"nonzero start", []uint64{1, 2}, []uint32{0, 0}, InvOffsetsStart},
		{"decreasing", []uint64{0, 2, 1, 3}, []uint32{0, 1, 2}, InvOffsetsMonotonic},
		{"end mismatch", []uint64{0, 3, 3}, []uint32{0, 1}, InvOffsetsEnd},
		{"neighbor out of range", []uint64{0, 1, 2}, []uint32{1, 2}, InvNeighborRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := TryFromCSR(tt.offsets, tt.indices)
			if tt.invariant == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !slices.Equal(g.Offsets(), tt.offsets) {
					t.Errorf("offsets = %v, want %v", g.Offsets(), tt.offsets)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Invariant != tt.invariant {
				t.Errorf("invariant = %q, want %q", verr.Invariant, tt.invariant)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("ValidationError should match ErrValidation")
			}
		})
	}
}

func TestTryFromCSRCopies(t *testing.T) {
	offsets := []uint64{0, 1, 2}
	indices := []uint32{1, 0}
	g, err := TryFromCSR(offsets, indices)
	if err != nil {
		t.Fatal(err)
	}
	indices[0] = 0
	offsets[1] = 2
	if g.Neighbors(0)[0] != 1 || g.Offsets()[1] != 1 {
		t.Error("TryFromCSR must not alias its input")
	}

	owned, err := TryFromCSROwned(offsets, indices)
	if err != nil {
		t.Fatal(err)
	}
	if &owned.NeighborIDs()[0] != &indices[0] {
		t.Error("TryFromCSROwned should take ownership without copying")
	}
}

func TestEdgeIndexRoundTrip(t *testing.T) {
	src := []uint32{3, 0, 1, 3, 2}
	dst := []uint32{0, 3, 3, 1, 2}
	g := mustCSR(TryFromEdgeIndex(src, dst))

	s, d := g.EdgeIndex()
	back := mustCSR(TryFromEdgeIndexOrder(g.Order(), s, d))
	if !back.Equal(g) {
		t.Errorf("EdgeIndex round trip differs: %v vs %v", back, g)
	}

	var visited int
	g.EachEdge(func(u, v uint32) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("EachEdge did not stop early: visited %d", visited)
	}
}

func mustCSR(g *CSR, err error) *CSR {
	if err != nil {
		panic(err)
	}
	return g
}
