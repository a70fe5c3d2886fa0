package bmt

import (
	"context"
	"fmt"
)

// packing places fixed-width elements side by side inside chunk leaves.
type packing struct {
	chunk int
	elem  int
	ratio uint64
}

func newPacking(d Digest, elemSize int) (packing, error) {
	w := d.Size()
	if elemSize <= 0 || elemSize > w || w%elemSize != 0 {
		return packing{}, fmt.Errorf("element size %d does not divide chunk size %d: %w", elemSize, w, ErrInvalidParameter)
	}
	return packing{chunk: w, elem: elemSize, ratio: uint64(w / elemSize)}, nil
}

// leaves is the number of chunks holding n elements.
func (p packing) leaves(n uint64) uint64 {
	return (n + p.ratio - 1) / p.ratio
}

func (p packing) locate(j uint64) (leaf uint64, off int) {
	return j / p.ratio, int(j%p.ratio) * p.elem
}

func (p packing) checkChunk(b []byte, leaf uint64) error {
	if len(b) != p.chunk {
		return fmt.Errorf("packed leaf %d has %d bytes: %w", leaf, len(b), ErrCorrupted)
	}
	return nil
}

func (p packing) checkElem(v []byte) error {
	if len(v) != p.elem {
		return fmt.Errorf("element of %d bytes in %d-byte packing: %w", len(v), p.elem, ErrInvalidParameter)
	}
	return nil
}

// extract copies element j out of its chunk.
func (p packing) extract(chunk []byte, j uint64) []byte {
	_, off := p.locate(j)
	return append([]byte{}, chunk[off:off+p.elem]...)
}

// replace returns a copy of chunk with element j overwritten.
func (p packing) replace(chunk []byte, j uint64, v []byte) []byte {
	_, off := p.locate(j)
	out := append([]byte{}, chunk...)
	copy(out[off:off+p.elem], v)
	return out
}

// PackedTuple is a fixed number of elements narrower than a chunk, packed
// W/E to a leaf.
type PackedTuple struct {
	f fixedLeaves
	p packing
	n uint64
}

// NewPackedTuple returns a tuple of k zero elements of elemSize bytes each.
func NewPackedTuple(ctx context.Context, db Backend, k uint64, elemSize int) (*PackedTuple, error) {
	p, err := newPacking(db.Digest(), elemSize)
	if err != nil {
		return nil, fmt.Errorf("new packed tuple: %w", err)
	}
	f, err := newFixedLeaves(ctx, db, p.leaves(k))
	if err != nil {
		return nil, fmt.Errorf("new packed tuple: %w", err)
	}
	return &PackedTuple{f: f, p: p, n: k}, nil
}

// LoadPackedTuple opens a packed tuple previously committed at root.
func LoadPackedTuple(ctx context.Context, db Backend, root Value, k uint64, elemSize int) (*PackedTuple, error) {
	p, err := newPacking(db.Digest(), elemSize)
	if err != nil {
		return nil, fmt.Errorf("load packed tuple: %w", err)
	}
	f, err := loadFixedLeaves(ctx, db, root, p.leaves(k))
	if err != nil {
		return nil, fmt.Errorf("load packed tuple: %w", err)
	}
	return &PackedTuple{f: f, p: p, n: k}, nil
}

func (t *PackedTuple) Len() uint64 {
	return t.n
}

// ElemSize is the width of one element in bytes.
func (t *PackedTuple) ElemSize() int {
	return t.p.elem
}

func (t *PackedTuple) Root() Value {
	return t.f.raw.Root()
}

func (t *PackedTuple) Get(ctx context.Context, db Backend, j uint64) ([]byte, error) {
	if j >= t.n {
		return nil, fmt.Errorf("packed tuple get %d of %d: %w", j, t.n, ErrIndexOutOfRange)
	}
	leaf, _ := t.p.locate(j)
	chunk, err := t.f.getLeaf(ctx, db, leaf)
	if err != nil {
		return nil, err
	}
	if err := t.p.checkChunk(chunk, leaf); err != nil {
		return nil, err
	}
	return t.p.extract(chunk, j), nil
}

func (t *PackedTuple) Set(ctx context.Context, db Backend, j uint64, v []byte) error {
	if j >= t.n {
		return fmt.Errorf("packed tuple set %d of %d: %w", j, t.n, ErrIndexOutOfRange)
	}
	if err := t.p.checkElem(v); err != nil {
		return err
	}
	leaf, _ := t.p.locate(j)
	chunk, err := t.f.getLeaf(ctx, db, leaf)
	if err != nil {
		return err
	}
	if err := t.p.checkChunk(chunk, leaf); err != nil {
		return err
	}
	return t.f.setLeaf(ctx, db, leaf, t.p.replace(chunk, j, v))
}

func (t *PackedTuple) Drop(ctx context.Context, db Backend) error {
	return t.f.raw.Drop(ctx, db)
}

func (t *PackedTuple) Clone(ctx context.Context, db Backend) (*PackedTuple, error) {
	f, err := t.f.clone(ctx, db)
	if err != nil {
		return nil, err
	}
	return &PackedTuple{f: f, p: t.p, n: t.n}, nil
}

// PackedVec is a variable-length list of elements narrower than a chunk.
// Its root mixes in the number of elements, not the number of chunks.
type PackedVec struct {
	m mixedLeaves
	p packing
	n uint64
}

// NewPackedVec returns an empty list of elemSize-byte elements.
func NewPackedVec(ctx context.Context, db Backend, elemSize int) (*PackedVec, error) {
	p, err := newPacking(db.Digest(), elemSize)
	if err != nil {
		return nil, fmt.Errorf("new packed vec: %w", err)
	}
	m, err := newMixedLeaves(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new packed vec: %w", err)
	}
	return &PackedVec{m: m, p: p}, nil
}

// LoadPackedVec opens a packed list previously committed at root.
func LoadPackedVec(ctx context.Context, db Backend, root Value, elemSize int) (*PackedVec, error) {
	p, err := newPacking(db.Digest(), elemSize)
	if err != nil {
		return nil, fmt.Errorf("load packed vec: %w", err)
	}
	m, n, err := loadMixedLeaves(ctx, db, root, p.leaves)
	if err != nil {
		return nil, fmt.Errorf("load packed vec: %w", err)
	}
	return &PackedVec{m: m, p: p, n: n}, nil
}

func (v *PackedVec) Len() uint64 {
	return v.n
}

// ElemSize is the width of one element in bytes.
func (v *PackedVec) ElemSize() int {
	return v.p.elem
}

// Depth is the depth of the items tree.
func (v *PackedVec) Depth() uint {
	return v.m.items.Depth()
}

func (v *PackedVec) Root() Value {
	return v.m.outer.Root()
}

func (v *PackedVec) chunk(ctx context.Context, db Backend, leaf uint64) ([]byte, error) {
	chunk, err := v.m.getLeaf(ctx, db, leaf)
	if err != nil {
		return nil, err
	}
	if err := v.p.checkChunk(chunk, leaf); err != nil {
		return nil, err
	}
	return chunk, nil
}

func (v *PackedVec) Get(ctx context.Context, db Backend, j uint64) ([]byte, error) {
	if j >= v.n {
		return nil, fmt.Errorf("packed vec get %d of %d: %w", j, v.n, ErrIndexOutOfRange)
	}
	leaf, _ := v.p.locate(j)
	chunk, err := v.chunk(ctx, db, leaf)
	if err != nil {
		return nil, err
	}
	return v.p.extract(chunk, j), nil
}

func (v *PackedVec) Set(ctx context.Context, db Backend, j uint64, b []byte) error {
	if j >= v.n {
		return fmt.Errorf("packed vec set %d of %d: %w", j, v.n, ErrIndexOutOfRange)
	}
	if err := v.p.checkElem(b); err != nil {
		return err
	}
	leaf, _ := v.p.locate(j)
	chunk, err := v.chunk(ctx, db, leaf)
	if err != nil {
		return err
	}
	if err := v.m.setLeaf(ctx, db, leaf, v.p.replace(chunk, j, b)); err != nil {
		return err
	}
	return v.m.commit(ctx, db, v.n)
}

// Push appends an element, starting a new chunk when the last one is full.
func (v *PackedVec) Push(ctx context.Context, db Backend, b []byte) error {
	if err := v.p.checkElem(b); err != nil {
		return fmt.Errorf("packed vec push: %w", err)
	}
	leaf, off := v.p.locate(v.n)
	if off == 0 {
		chunk := make([]byte, v.p.chunk)
		copy(chunk, b)
		if err := v.m.pushLeaf(ctx, db, chunk); err != nil {
			return fmt.Errorf("packed vec push: %w", err)
		}
	} else {
		chunk, err := v.chunk(ctx, db, leaf)
		if err != nil {
			return fmt.Errorf("packed vec push: %w", err)
		}
		if err := v.m.setLeaf(ctx, db, leaf, v.p.replace(chunk, v.n, b)); err != nil {
			return fmt.Errorf("packed vec push: %w", err)
		}
	}
	v.n++
	return v.m.commit(ctx, db, v.n)
}

// Pop removes and returns the last element. Its bytes are zeroed, and its
// chunk is removed once empty.
func (v *PackedVec) Pop(ctx context.Context, db Backend) ([]byte, error) {
	if v.n == 0 {
		return nil, fmt.Errorf("packed vec pop: empty: %w", ErrIndexOutOfRange)
	}
	j := v.n - 1
	leaf, off := v.p.locate(j)
	chunk, err := v.chunk(ctx, db, leaf)
	if err != nil {
		return nil, fmt.Errorf("packed vec pop: %w", err)
	}
	last := v.p.extract(chunk, j)
	if off == 0 {
		err = v.m.popLeaf(ctx, db)
	} else {
		err = v.m.setLeaf(ctx, db, leaf, v.p.replace(chunk, j, make([]byte, v.p.elem)))
	}
	if err != nil {
		return nil, fmt.Errorf("packed vec pop: %w", err)
	}
	v.n--
	if err := v.m.commit(ctx, db, v.n); err != nil {
		return nil, err
	}
	return last, nil
}

func (v *PackedVec) Drop(ctx context.Context, db Backend) error {
	if err := v.m.drop(ctx, db); err != nil {
		return fmt.Errorf("packed vec drop: %w", err)
	}
	v.n = 0
	return nil
}

func (v *PackedVec) Clone(ctx context.Context, db Backend) (*PackedVec, error) {
	m, err := v.m.clone(ctx, db)
	if err != nil {
		return nil, err
	}
	return &PackedVec{m: m, p: v.p, n: v.n}, nil
}
