package bmt

import (
	"fmt"
	"math/bits"
)

// Index is a generalized index: the root is 1 and the children of i are 2i
// and 2i+1. Zero is not a valid index.
type Index uint64

// RootIndex addresses the root of a tree.
const RootIndex Index = 1

// Selection picks one child of an intermediate node.
type Selection uint8

const (
	// Left is the even child.
	Left Selection = iota
	// Right is the odd child.
	Right
)

func (s Selection) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// LeafIndex returns the generalized index of position i among the 2^depth
// nodes at the given depth.
func LeafIndex(depth uint, i uint64) Index {
	return Index(uint64(1)<<depth + i)
}

// Valid reports whether i addresses a node.
func (i Index) Valid() bool {
	return i != 0
}

// Depth is the distance from the root, floor(log2(i)).
func (i Index) Depth() uint {
	return uint(bits.Len64(uint64(i))) - 1
}

// Left returns the even child.
func (i Index) Left() Index {
	return 2 * i
}

// Right returns the odd child.
func (i Index) Right() Index {
	return 2*i + 1
}

// Parent returns the parent index; the root has none.
func (i Index) Parent() (Index, bool) {
	if i <= RootIndex {
		return 0, false
	}
	return i / 2, true
}

// Sibling returns the other child of the same parent; the root has none.
func (i Index) Sibling() (Index, bool) {
	if i <= RootIndex {
		return 0, false
	}
	return i ^ 1, true
}

// Position is the offset of i among the nodes at its depth.
func (i Index) Position() uint64 {
	return uint64(i) - uint64(1)<<i.Depth()
}

// Route lists the child selections leading from the root to i: the bits of
// i below its leading one, most significant first.
func (i Index) Route() []Selection {
	depth := i.Depth()
	route := make([]Selection, depth)
	for k := uint(0); k < depth; k++ {
		route[k] = Selection((uint64(i) >> (depth - 1 - k)) & 1)
	}
	return route
}

func (i Index) String() string {
	return fmt.Sprintf("%d", uint64(i))
}

// depthFor returns the depth of the smallest complete tree with at least n
// leaves.
func depthFor(n uint64) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len64(n - 1))
}
