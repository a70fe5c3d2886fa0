package bmt

import (
	"context"
	"fmt"
)

// emptyAt returns the root of the complete tree of zero leaves with the
// given height. A link result carries one reference owned by the caller.
func emptyAt(ctx context.Context, db Backend, height uint) (Value, error) {
	v := zeroLeaf(db.Digest())
	for h := uint(0); h < height; h++ {
		key, err := db.Insert(ctx, Node{Left: v, Right: v})
		if err != nil {
			return Value{}, fmt.Errorf("empty subtree at height %d: %w", h+1, err)
		}
		// the new node holds its own references to v
		if err := release(ctx, db, v); err != nil {
			return Value{}, fmt.Errorf("empty subtree at height %d: %w", h+1, err)
		}
		v = LinkValue(key)
	}
	return v, nil
}
