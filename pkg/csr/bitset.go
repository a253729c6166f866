package csr

import "fmt"

// bitSet is a fixed-capacity set of vertex ids, one bit per vertex.
type bitSet struct {
	buckets []uint64
}

func newBitSet(capacity int) *bitSet {
	return &bitSet{buckets: make([]uint64, (capacity+63)>>6)}
}

// add inserts n and reports whether it was already present.
func (bs *bitSet) add(n uint32) bool {
	bucket, bit := n>>6, uint64(1)<<(n&63)
	seen := bs.buckets[bucket]&bit != 0
	bs.buckets[bucket] |= bit
	return seen
}

func (bs *bitSet) has(n uint32) bool {
	bucket := n >> 6
	if int(bucket) >= len(bs.buckets) {
		return false
	}
	return bs.buckets[bucket]&(1<<(n&63)) != 0
}

// MaskFromIndices expands a list of vertex ids, such as a training split
// stored as an index array, into a mask of length order. Repeated ids are
// allowed; ids outside [0, order) are a ValidationError.
func MaskFromIndices(order int, idx []uint32) ([]bool, error) {
	set := newBitSet(order)
	for i, v := range idx {
		if uint64(v) >= uint64(order) {
			return nil, &ValidationError{Invariant: InvNeighborRange, Index: i, Detail: fmt.Sprintf("index %d with order %d", v, order)}
		}
		set.add(v)
	}
	mask := make([]bool, order)
	for v := range mask {
		mask[v] = set.has(uint32(v))
	}
	return mask, nil
}
