// Package brodnik implements the Brodnik resizable array: an indexed,
// append/pop-at-end container with O(sqrt N) wasted slack and O(1)
// index-to-storage-location mapping, built from an array of
// geometrically-sized data blocks addressed through a directory.
//
// The layout follows the classic Brodnik/Carlsson/Demaine/Munro/Sedgewick
// construction: blocks are grouped in "superblocks"
// of two equal block sizes each, sizes double every two superblocks, and a
// block/offset pair for logical index i is recovered from the bit position
// of (i+1) without any search.
package brodnik

import "math/bits"

// location is blockIndex, offset-within-block, and that block's length.
type location struct {
	block  int
	offset int
	length int
}

// locate maps a 0-based logical index i to its (block, offset, blockLen)
// in O(1); the location is computed from the bit layout of i, not searched.
//
// Writing r = i+1, superblock k is the range of r with the same
// most-significant-bit position (r in [2^k, 2^(k+1)-1]), holding 2^k
// elements total; superblock k is divided into 2^floor(k/2) blocks of
// length 2^ceil(k/2) each. e = r - 2^k is the offset from the start of
// superblock k, which splits into a block index (e / blockLen) and an
// intra-block offset (e % blockLen). blocksBefore(k), the count of blocks
// in every superblock before k, has the closed form derived by pairing
// consecutive superblocks (each pair of superblock lengths 2^m doubles the
// running total): blocksBefore(2M) = 2^(M+1)-2, blocksBefore(2M+1) = 3*2^M-2.
func locate(i int) location {
	r := uint64(i + 1)
	k := bits.Len64(r) - 1
	e := r - (uint64(1) << uint(k))
	m := k / 2

	var blocksBefore int
	if k%2 == 0 {
		blocksBefore = (1 << uint(m+1)) - 2
	} else {
		blocksBefore = 3*(1<<uint(m)) - 2
	}
	blockLen := 1 << uint((k+1)/2)
	b := int(e) / blockLen
	offset := int(e) % blockLen

	return location{block: blocksBefore + b, offset: offset, length: blockLen}
}

// Array is the Brodnik resizable array: an ordered, 0-based indexed sequence supporting O(1) amortized append,
// O(1) pop-at-end, and O(1) index access, with a directory of geometrically
// growing data blocks instead of one contiguous backing array.
type Array struct {
	blocks [][]any
	count  int
}

// New returns an empty Brodnik array.
func New() *Array { return &Array{} }

// Len reports the number of live elements.
func (a *Array) Len() int { return a.count }

// ensureBlock makes sure blocks[idx] exists with the given length,
// allocating it the first time an index within it is reached.
func (a *Array) ensureBlock(idx, length int) {
	for len(a.blocks) <= idx {
		a.blocks = append(a.blocks, nil)
	}
	if a.blocks[idx] == nil {
		a.blocks[idx] = make([]any, length)
	}
}

// Append adds x at the end, O(1) amortized.
func (a *Array) Append(x any) {
	loc := locate(a.count)
	a.ensureBlock(loc.block, loc.length)
	a.blocks[loc.block][loc.offset] = x
	a.count++
}

// Pop removes and returns the last element. Panics if the array is empty;
// unlike At and Set, it has no ok result to report the failure.
func (a *Array) Pop() any {
	if a.count == 0 {
		panic("brodnik: Pop on empty array")
	}
	a.count--
	loc := locate(a.count)
	v := a.blocks[loc.block][loc.offset]
	a.blocks[loc.block][loc.offset] = nil
	// Shrink the directory once a block becomes fully vacated and sits past
	// the live range, so memory tracks count within the same O(sqrt N) slack
	// bound append grows it by.
	if loc.offset == 0 && loc.block < len(a.blocks)-1 {
		a.blocks = a.blocks[:loc.block+1]
	}
	return v
}

// At returns the element at logical index i, O(1).
func (a *Array) At(i int) (any, bool) {
	if i < 0 || i >= a.count {
		return nil, false
	}
	loc := locate(i)
	return a.blocks[loc.block][loc.offset], true
}

// Set overwrites the element at logical index i.
func (a *Array) Set(i int, x any) bool {
	if i < 0 || i >= a.count {
		return false
	}
	loc := locate(i)
	a.blocks[loc.block][loc.offset] = x
	return true
}

// Elements materializes every live element in order.
func (a *Array) Elements() []any {
	out := make([]any, 0, a.count)
	for i := 0; i < a.count; i++ {
		v, _ := a.At(i)
		out = append(out, v)
	}
	return out
}
