package bmt

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrIndexOutOfRange is returned when a logical or generalized index is
	// outside the current bounds. Nothing is mutated when it is returned.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound means a key that should be stored is missing; the tree and
	// its backend disagree.
	ErrNotFound = errors.New("node not found")
	// ErrRefcountUnderflow means a key was released more times than it was
	// referenced.
	ErrRefcountUnderflow = errors.New("refcount underflow")
	// ErrInvalidParameter rejects container shapes that cannot be built.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCorrupted means stored data does not have the shape its reader
	// expects.
	ErrCorrupted = errors.New("corrupted tree")
)

// Backend is content-addressed node storage with reference counting.
// Implementations that are shared between goroutines must make Insert and
// Decrement atomic with respect to each other.
type Backend interface {
	// Digest is the hash function keys are computed with.
	Digest() Digest
	// Get returns the node stored under key, or ErrNotFound.
	Get(ctx context.Context, key Hash) (Node, error)
	// Insert stores node if it is new and hands the caller one reference
	// to it. A new node also takes one reference on each of its link
	// children; an existing node only has its count bumped.
	Insert(ctx context.Context, node Node) (Hash, error)
	// Decrement releases one reference. A node whose count drops to zero is
	// removed and releases its link children in turn.
	Decrement(ctx context.Context, key Hash) error
}

// BackendConfig holds the settings common to every provided Backend.
type BackendConfig struct {
	// Digest defaults to Blake2b256.
	Digest Digest
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Metrics is optional.
	Metrics *Metrics
}

func (c *BackendConfig) withDefaults() BackendConfig {
	var out BackendConfig
	if c != nil {
		out = *c
	}
	if out.Digest == nil {
		out.Digest = Blake2b256
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// retain takes one more reference on an existing node.
func retain(ctx context.Context, db Backend, key Hash) error {
	node, err := db.Get(ctx, key)
	if err != nil {
		return err
	}
	_, err = db.Insert(ctx, node)
	return err
}

// release drops a reference held through v, if v is a link.
func release(ctx context.Context, db Backend, v Value) error {
	if !v.IsLink() {
		return nil
	}
	return db.Decrement(ctx, v.Link())
}
