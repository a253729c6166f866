package csr

import (
	"fmt"
	"slices"
)

// TryFromEdgeIndex builds a CSR from a dense edge index: edge i is
// src[i] -> dst[i]. The order is the largest id seen plus one. Neighbors of a
// vertex keep the order in which their edges appear in the input.
func TryFromEdgeIndex(src, dst []uint32) (*CSR, error) {
	if len(src) != len(dst) {
		return nil, &ShapeError{What: "dst", Got: len(dst), Want: len(src)}
	}
	order := 0
	for i := range src {
		if m := int(max(src[i], dst[i])) + 1; m > order {
			order = m
		}
	}
	return TryFromEdgeIndexOrder(order, src, dst)
}

// TryFromEdgeIndexOrder is TryFromEdgeIndex with a caller supplied vertex
// count. Ids outside [0, order) fail with a ValidationError.
func TryFromEdgeIndexOrder(order int, src, dst []uint32) (*CSR, error) {
	if len(src) != len(dst) {
		return nil, &ShapeError{What: "dst", Got: len(dst), Want: len(src)}
	}
	if order < 0 || order > MaxOrder {
		return nil, &ValidationError{Invariant: InvOrderRange, Index: 0, Detail: fmt.Sprintf("order %d", order)}
	}

	offsets := make([]uint64, order+1)
	for i := range src {
		if uint64(src[i]) >= uint64(order) {
			return nil, &ValidationError{Invariant: InvNeighborRange, Index: i, Detail: fmt.Sprintf("source %d with order %d", src[i], order)}
		}
		if uint64(dst[i]) >= uint64(order) {
			return nil, &ValidationError{Invariant: InvNeighborRange, Index: i, Detail: fmt.Sprintf("destination %d with order %d", dst[i], order)}
		}
		offsets[int(src[i])+1]++
	}
	for v := 1; v <= order; v++ {
		offsets[v] += offsets[v-1]
	}

	// Counting sort; the cursor walks each vertex's range in input order.
	cursor := slices.Clone(offsets[:order])
	neighbors := make([]uint32, len(src))
	for i, u := range src {
		neighbors[cursor[u]] = dst[i]
		cursor[u]++
	}
	return fromParts(offsets, neighbors), nil
}

// TryFromCSR validates and copies a pre-built offset/neighbor pair. Malformed
// input is rejected with a ValidationError naming the violated invariant;
// nothing is repaired.
func TryFromCSR(offsets []uint64, indices []uint32) (*CSR, error) {
	if err := validate(offsets, indices); err != nil {
		return nil, err
	}
	return fromParts(slices.Clone(offsets), slices.Clone(indices)), nil
}

// TryFromCSROwned is TryFromCSR without the copy: on success the graph takes
// ownership of both slices and the caller must not modify them again.
func TryFromCSROwned(offsets []uint64, indices []uint32) (*CSR, error) {
	if err := validate(offsets, indices); err != nil {
		return nil, err
	}
	return fromParts(offsets, indices), nil
}
