package bmt

import (
	"context"
	"fmt"
)

// Vec is a variable-length list of chunk-sized elements. Its root is
//
//	(items root, length chunk)
//
// where the items tree has the smallest power-of-two capacity holding every
// element and unused positions hold the zero leaf.
type Vec struct {
	m mixedLeaves
}

// NewVec returns an empty list.
func NewVec(ctx context.Context, db Backend) (*Vec, error) {
	m, err := newMixedLeaves(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new vec: %w", err)
	}
	return &Vec{m: m}, nil
}

// LoadVec opens a list previously committed at root.
func LoadVec(ctx context.Context, db Backend, root Value) (*Vec, error) {
	m, _, err := loadMixedLeaves(ctx, db, root, func(n uint64) uint64 { return n })
	if err != nil {
		return nil, fmt.Errorf("load vec: %w", err)
	}
	return &Vec{m: m}, nil
}

func (v *Vec) Len() uint64 {
	return v.m.leaves
}

// Depth is the depth of the items tree.
func (v *Vec) Depth() uint {
	return v.m.items.Depth()
}

func (v *Vec) Root() Value {
	return v.m.outer.Root()
}

func (v *Vec) Get(ctx context.Context, db Backend, i uint64) ([]byte, error) {
	if i >= v.m.leaves {
		return nil, fmt.Errorf("vec get %d of %d: %w", i, v.m.leaves, ErrIndexOutOfRange)
	}
	return v.m.getLeaf(ctx, db, i)
}

func (v *Vec) Set(ctx context.Context, db Backend, i uint64, b []byte) error {
	if i >= v.m.leaves {
		return fmt.Errorf("vec set %d of %d: %w", i, v.m.leaves, ErrIndexOutOfRange)
	}
	if err := v.m.setLeaf(ctx, db, i, b); err != nil {
		return err
	}
	return v.m.commit(ctx, db, v.m.leaves)
}

// Push appends an element, doubling capacity when the list is full.
func (v *Vec) Push(ctx context.Context, db Backend, b []byte) error {
	if err := v.m.pushLeaf(ctx, db, b); err != nil {
		return fmt.Errorf("vec push: %w", err)
	}
	return v.m.commit(ctx, db, v.m.leaves)
}

// Pop removes and returns the last element. Popping an empty list returns
// ErrIndexOutOfRange.
func (v *Vec) Pop(ctx context.Context, db Backend) ([]byte, error) {
	if v.m.leaves == 0 {
		return nil, fmt.Errorf("vec pop: empty: %w", ErrIndexOutOfRange)
	}
	last, err := v.m.getLeaf(ctx, db, v.m.leaves-1)
	if err != nil {
		return nil, fmt.Errorf("vec pop: %w", err)
	}
	if err := v.m.popLeaf(ctx, db); err != nil {
		return nil, fmt.Errorf("vec pop: %w", err)
	}
	if err := v.m.commit(ctx, db, v.m.leaves); err != nil {
		return nil, err
	}
	return last, nil
}

func (v *Vec) Drop(ctx context.Context, db Backend) error {
	if err := v.m.drop(ctx, db); err != nil {
		return fmt.Errorf("vec drop: %w", err)
	}
	v.m.leaves = 0
	return nil
}

// Clone returns an independent list with the same contents. The two share
// storage until one of them is modified.
func (v *Vec) Clone(ctx context.Context, db Backend) (*Vec, error) {
	m, err := v.m.clone(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Vec{m: m}, nil
}
