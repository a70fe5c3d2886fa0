package bmt

import (
	"context"
	"fmt"
)

// Tuple is a fixed number of chunk-sized elements. Its root covers only the
// elements; the count is part of its type.
type Tuple struct {
	f fixedLeaves
}

// NewTuple returns a tuple of k zero elements.
func NewTuple(ctx context.Context, db Backend, k uint64) (*Tuple, error) {
	f, err := newFixedLeaves(ctx, db, k)
	if err != nil {
		return nil, fmt.Errorf("new tuple: %w", err)
	}
	return &Tuple{f: f}, nil
}

// LoadTuple opens a k-element tuple previously committed at root.
func LoadTuple(ctx context.Context, db Backend, root Value, k uint64) (*Tuple, error) {
	f, err := loadFixedLeaves(ctx, db, root, k)
	if err != nil {
		return nil, fmt.Errorf("load tuple: %w", err)
	}
	return &Tuple{f: f}, nil
}

func (t *Tuple) Len() uint64 {
	return t.f.leaves
}

func (t *Tuple) Root() Value {
	return t.f.raw.Root()
}

func (t *Tuple) Get(ctx context.Context, db Backend, i uint64) ([]byte, error) {
	if i >= t.f.leaves {
		return nil, fmt.Errorf("tuple get %d of %d: %w", i, t.f.leaves, ErrIndexOutOfRange)
	}
	return t.f.getLeaf(ctx, db, i)
}

func (t *Tuple) Set(ctx context.Context, db Backend, i uint64, v []byte) error {
	if i >= t.f.leaves {
		return fmt.Errorf("tuple set %d of %d: %w", i, t.f.leaves, ErrIndexOutOfRange)
	}
	return t.f.setLeaf(ctx, db, i, v)
}

func (t *Tuple) Drop(ctx context.Context, db Backend) error {
	return t.f.raw.Drop(ctx, db)
}

// Clone returns an independent tuple with the same contents. The two share
// storage until one of them is modified.
func (t *Tuple) Clone(ctx context.Context, db Backend) (*Tuple, error) {
	f, err := t.f.clone(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Tuple{f: f}, nil
}
