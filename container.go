package bmt

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Tree is anything that owns roots in a Backend.
type Tree interface {
	// Root is the commitment to the tree's contents.
	Root() Value
	// Drop releases every root the tree owns. It is the only way its
	// storage is reclaimed.
	Drop(ctx context.Context, db Backend) error
}

// Container is a collection of byte-string elements addressed by position.
type Container interface {
	Tree
	Len() uint64
	Get(ctx context.Context, db Backend, i uint64) ([]byte, error)
	Set(ctx context.Context, db Backend, i uint64, v []byte) error
}

// Sequence is a Container that grows and shrinks at its end.
type Sequence interface {
	Container
	Push(ctx context.Context, db Backend, v []byte) error
	Pop(ctx context.Context, db Backend) ([]byte, error)
}

var (
	_ Container = (*Tuple)(nil)
	_ Container = (*PackedTuple)(nil)
	_ Sequence  = (*Vec)(nil)
	_ Sequence  = (*PackedVec)(nil)
)

// Generalized indices inside a length-mixed root.
const (
	itemsIndex  Index = 2
	lengthIndex Index = 3
)

func leafOf(v Value, index Index) ([]byte, error) {
	if v.IsLink() {
		return nil, fmt.Errorf("index %v holds a link where a leaf is expected: %w", index, ErrCorrupted)
	}
	return v.Leaf(), nil
}

// fixedLeaves is a complete tree of a fixed number of leaves.
type fixedLeaves struct {
	raw    *Raw
	leaves uint64
}

func newFixedLeaves(ctx context.Context, db Backend, leaves uint64) (fixedLeaves, error) {
	depth := depthFor(leaves)
	root, err := emptyAt(ctx, db, depth)
	if err != nil {
		return fixedLeaves{}, err
	}
	// the handle takes over the reference emptyAt returned
	return fixedLeaves{raw: &Raw{root: root, depth: depth}, leaves: leaves}, nil
}

func loadFixedLeaves(ctx context.Context, db Backend, root Value, leaves uint64) (fixedLeaves, error) {
	raw, err := LoadRaw(ctx, db, root)
	if err != nil {
		return fixedLeaves{}, err
	}
	if raw.Depth() != depthFor(leaves) {
		_ = raw.Drop(ctx, db)
		return fixedLeaves{}, fmt.Errorf("depth %d does not hold %d leaves: %w", raw.Depth(), leaves, ErrCorrupted)
	}
	return fixedLeaves{raw: raw, leaves: leaves}, nil
}

func (f *fixedLeaves) index(i uint64) Index {
	return LeafIndex(f.raw.Depth(), i)
}

func (f *fixedLeaves) getLeaf(ctx context.Context, db Backend, i uint64) ([]byte, error) {
	index := f.index(i)
	v, err := f.raw.Get(ctx, db, index)
	if err != nil {
		return nil, err
	}
	return leafOf(v, index)
}

func (f *fixedLeaves) setLeaf(ctx context.Context, db Backend, i uint64, leaf []byte) error {
	return f.raw.Set(ctx, db, f.index(i), LeafValue(leaf))
}

func (f *fixedLeaves) clone(ctx context.Context, db Backend) (fixedLeaves, error) {
	raw, err := f.raw.Clone(ctx, db)
	if err != nil {
		return fixedLeaves{}, err
	}
	return fixedLeaves{raw: raw, leaves: f.leaves}, nil
}

// mixedLeaves is a growable tree of leaves whose committed root also
// covers a length: root = (items root, length chunk). Capacity is the
// smallest power of two holding every leaf, so equal contents always have
// equal roots.
type mixedLeaves struct {
	outer  *Raw
	items  *Raw
	leaves uint64
}

func newMixedLeaves(ctx context.Context, db Backend) (mixedLeaves, error) {
	m := mixedLeaves{outer: NewRaw(db), items: NewRaw(db)}
	if err := m.commit(ctx, db, 0); err != nil {
		return mixedLeaves{}, err
	}
	return m, nil
}

// loadMixedLeaves reconstructs the tree from its committed root. leavesFor
// turns the committed length into a leaf count.
func loadMixedLeaves(ctx context.Context, db Backend, root Value, leavesFor func(uint64) uint64) (mixedLeaves, uint64, error) {
	if !root.IsLink() {
		return mixedLeaves{}, 0, fmt.Errorf("length-mixed root must be a link: %w", ErrCorrupted)
	}
	n, err := db.Get(ctx, root.Link())
	if err != nil {
		return mixedLeaves{}, 0, err
	}
	lengthLeaf, err := leafOf(n.Right, lengthIndex)
	if err != nil {
		return mixedLeaves{}, 0, err
	}
	length, err := decodeLength(lengthLeaf)
	if err != nil {
		return mixedLeaves{}, 0, err
	}
	outer, err := LoadRaw(ctx, db, root)
	if err != nil {
		return mixedLeaves{}, 0, err
	}
	items, err := LoadRaw(ctx, db, n.Left)
	if err != nil {
		_ = outer.Drop(ctx, db)
		return mixedLeaves{}, 0, err
	}
	m := mixedLeaves{outer: outer, items: items, leaves: leavesFor(length)}
	if items.Depth() != depthFor(m.leaves) {
		_ = m.drop(ctx, db)
		return mixedLeaves{}, 0, fmt.Errorf("depth %d does not match length %d: %w", items.Depth(), length, ErrCorrupted)
	}
	return m, length, nil
}

func (m *mixedLeaves) commit(ctx context.Context, db Backend, length uint64) error {
	key, err := db.Insert(ctx, Node{Left: m.items.Root(), Right: LeafValue(encodeLength(db.Digest(), length))})
	if err != nil {
		return fmt.Errorf("commit length %d: %w", length, err)
	}
	root := LinkValue(key)
	if err := m.outer.setRoot(ctx, db, root, m.items.Depth()+1); err != nil {
		releaseAll(ctx, db, []Value{root})
		return fmt.Errorf("commit length %d: %w", length, err)
	}
	return release(ctx, db, root)
}

func (m *mixedLeaves) index(i uint64) Index {
	return LeafIndex(m.items.Depth(), i)
}

func (m *mixedLeaves) getLeaf(ctx context.Context, db Backend, i uint64) ([]byte, error) {
	index := m.index(i)
	v, err := m.items.Get(ctx, db, index)
	if err != nil {
		return nil, err
	}
	return leafOf(v, index)
}

func (m *mixedLeaves) setLeaf(ctx context.Context, db Backend, i uint64, leaf []byte) error {
	return m.items.Set(ctx, db, m.index(i), LeafValue(leaf))
}

// pushLeaf appends a leaf, doubling capacity when it is full. The caller
// commits the new length.
func (m *mixedLeaves) pushLeaf(ctx context.Context, db Backend, leaf []byte) error {
	i := m.leaves
	if err := m.items.Set(ctx, db, LeafIndex(depthFor(i+1), i), LeafValue(leaf)); err != nil {
		return err
	}
	m.leaves++
	return nil
}

// popLeaf clears the last leaf and halves capacity once the remaining
// leaves fit in the left half. The caller commits the new length.
func (m *mixedLeaves) popLeaf(ctx context.Context, db Backend) error {
	i := m.leaves - 1
	if err := m.items.Set(ctx, db, m.index(i), zeroLeaf(db.Digest())); err != nil {
		return err
	}
	m.leaves--
	for m.items.Depth() > depthFor(m.leaves) {
		left, err := m.items.Get(ctx, db, itemsIndex)
		if err != nil {
			return fmt.Errorf("shrink: %w", err)
		}
		if err := m.items.setRoot(ctx, db, left, m.items.Depth()-1); err != nil {
			return fmt.Errorf("shrink: %w", err)
		}
	}
	return nil
}

func (m *mixedLeaves) drop(ctx context.Context, db Backend) error {
	if err := m.items.Drop(ctx, db); err != nil {
		return err
	}
	return m.outer.Drop(ctx, db)
}

func (m *mixedLeaves) clone(ctx context.Context, db Backend) (mixedLeaves, error) {
	outer, err := m.outer.Clone(ctx, db)
	if err != nil {
		return mixedLeaves{}, err
	}
	items, err := m.items.Clone(ctx, db)
	if err != nil {
		_ = outer.Drop(ctx, db)
		return mixedLeaves{}, err
	}
	return mixedLeaves{outer: outer, items: items, leaves: m.leaves}, nil
}

// encodeLength renders a length as a little-endian uint64 zero-padded to a
// chunk.
func encodeLength(d Digest, length uint64) []byte {
	size := d.Size()
	if size < 8 {
		size = 8
	}
	b := make([]byte, size)
	binary.LittleEndian.PutUint64(b, length)
	return b
}

func decodeLength(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("length chunk of %d bytes: %w", len(b), ErrCorrupted)
	}
	return binary.LittleEndian.Uint64(b), nil
}
