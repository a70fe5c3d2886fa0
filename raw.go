package bmt

import (
	"context"
	"fmt"
)

// Raw is a binary merkle tree addressed directly by generalized index. It
// holds one reference on its root; the nodes themselves live in a Backend
// passed to every operation.
type Raw struct {
	root  Value
	depth uint
}

var _ Tree = (*Raw)(nil)

// NewRaw returns a tree of depth 0 whose root is the zero leaf.
func NewRaw(db Backend) *Raw {
	return &Raw{root: zeroLeaf(db.Digest())}
}

// LoadRaw returns a tree over an existing root, taking its own reference on
// it. The depth is that of its deepest leaf.
func LoadRaw(ctx context.Context, db Backend, root Value) (*Raw, error) {
	depth, err := subtreeDepth(ctx, db, root)
	if err != nil {
		return nil, fmt.Errorf("load raw: %w", err)
	}
	if root.IsLink() {
		if err := retain(ctx, db, root.Link()); err != nil {
			return nil, fmt.Errorf("load raw: %w", err)
		}
	}
	return &Raw{root: root, depth: depth}, nil
}

// Root returns the current root.
func (r *Raw) Root() Value {
	return r.root
}

// Depth is the depth the tree has been grown to. Regions replaced by a
// shallower value report ErrIndexOutOfRange below that value.
func (r *Raw) Depth() uint {
	return r.depth
}

// Get returns the value at index.
func (r *Raw) Get(ctx context.Context, db Backend, index Index) (Value, error) {
	if !index.Valid() || index.Depth() > r.depth {
		return Value{}, fmt.Errorf("get %v of depth-%d tree: %w", index, r.depth, ErrIndexOutOfRange)
	}
	cur := r.root
	for _, sel := range index.Route() {
		if !cur.IsLink() {
			return Value{}, fmt.Errorf("get %v: unpopulated: %w", index, ErrIndexOutOfRange)
		}
		n, err := db.Get(ctx, cur.Link())
		if err != nil {
			return Value{}, fmt.Errorf("get %v: %w", index, err)
		}
		cur = n.Child(sel)
	}
	return cur, nil
}

// Set writes v at index and recomputes every hash on the path to the root.
// An index deeper than the tree first grows it by reparenting the root
// under empty siblings. The tree takes its own references on v.
func (r *Raw) Set(ctx context.Context, db Backend, index Index, v Value) error {
	if !index.Valid() {
		return fmt.Errorf("set %v: %w", index, ErrIndexOutOfRange)
	}
	if index == RootIndex {
		return r.replaceRoot(ctx, db, v)
	}
	vDepth, err := subtreeDepth(ctx, db, v)
	if err != nil {
		return fmt.Errorf("set %v: %w", index, err)
	}
	depth := index.Depth()
	if depth > r.depth {
		if err := r.grow(ctx, db, depth); err != nil {
			return fmt.Errorf("set %v: grow: %w", index, err)
		}
	}

	// references held only until the new root holds them
	var temps []Value
	route := index.Route()
	path := make([]Node, depth)
	cur := r.root
	for k, sel := range route {
		if cur.IsLink() {
			path[k], err = db.Get(ctx, cur.Link())
			if err != nil {
				releaseAll(ctx, db, temps)
				return fmt.Errorf("set %v: load path: %w", index, err)
			}
		} else {
			e, err := emptyAt(ctx, db, depth-uint(k)-1)
			if err != nil {
				releaseAll(ctx, db, temps)
				return fmt.Errorf("set %v: %w", index, err)
			}
			temps = append(temps, e)
			path[k] = Node{Left: e, Right: e}
		}
		cur = path[k].Child(sel)
	}

	update := v
	for k := len(path) - 1; k >= 0; k-- {
		key, err := db.Insert(ctx, path[k].With(route[k], update))
		if err != nil {
			if k < len(path)-1 {
				temps = append(temps, update)
			}
			releaseAll(ctx, db, temps)
			return fmt.Errorf("set %v: insert: %w", index, err)
		}
		if k < len(path)-1 {
			temps = append(temps, update)
		}
		update = LinkValue(key)
	}

	old := r.root
	r.root = update
	if d := depth + vDepth; d > r.depth {
		r.depth = d
	}
	for _, t := range temps {
		if err := release(ctx, db, t); err != nil {
			return fmt.Errorf("set %v: release: %w", index, err)
		}
	}
	if err := release(ctx, db, old); err != nil {
		return fmt.Errorf("set %v: release old root: %w", index, err)
	}
	return nil
}

// Drop releases the tree's root. The handle is left as an empty tree.
func (r *Raw) Drop(ctx context.Context, db Backend) error {
	old := r.root
	r.root, r.depth = zeroLeaf(db.Digest()), 0
	if err := release(ctx, db, old); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

// Clone returns an independent handle on the same root.
func (r *Raw) Clone(ctx context.Context, db Backend) (*Raw, error) {
	if r.root.IsLink() {
		if err := retain(ctx, db, r.root.Link()); err != nil {
			return nil, fmt.Errorf("clone: %w", err)
		}
	}
	c := *r
	return &c, nil
}

func (r *Raw) replaceRoot(ctx context.Context, db Backend, v Value) error {
	depth, err := subtreeDepth(ctx, db, v)
	if err != nil {
		return fmt.Errorf("set root: %w", err)
	}
	return r.setRoot(ctx, db, v, depth)
}

// setRoot installs v as the root when the caller already knows its depth.
func (r *Raw) setRoot(ctx context.Context, db Backend, v Value, depth uint) error {
	// v may live under the old root, so it is retained first
	if v.IsLink() {
		if err := retain(ctx, db, v.Link()); err != nil {
			return fmt.Errorf("set root: %w", err)
		}
	}
	old := r.root
	r.root, r.depth = v, depth
	if err := release(ctx, db, old); err != nil {
		return fmt.Errorf("set root: release old root: %w", err)
	}
	return nil
}

func (r *Raw) grow(ctx context.Context, db Backend, depth uint) error {
	for r.depth < depth {
		e, err := emptyAt(ctx, db, r.depth)
		if err != nil {
			return err
		}
		key, err := db.Insert(ctx, Node{Left: r.root, Right: e})
		if err != nil {
			releaseAll(ctx, db, []Value{e})
			return err
		}
		if err := release(ctx, db, e); err != nil {
			return err
		}
		if err := release(ctx, db, r.root); err != nil {
			return err
		}
		r.root = LinkValue(key)
		r.depth++
	}
	return nil
}

// subtreeDepth is the depth of the deepest leaf under v. Shared subtrees are
// measured once.
func subtreeDepth(ctx context.Context, db Backend, v Value) (uint, error) {
	return measureDepth(ctx, db, v, map[Hash]uint{})
}

func measureDepth(ctx context.Context, db Backend, v Value, seen map[Hash]uint) (uint, error) {
	if !v.IsLink() {
		return 0, nil
	}
	if d, ok := seen[v.Link()]; ok {
		return d, nil
	}
	n, err := db.Get(ctx, v.Link())
	if err != nil {
		return 0, err
	}
	left, err := measureDepth(ctx, db, n.Left, seen)
	if err != nil {
		return 0, err
	}
	right, err := measureDepth(ctx, db, n.Right, seen)
	if err != nil {
		return 0, err
	}
	if right > left {
		left = right
	}
	seen[v.Link()] = left + 1
	return left + 1, nil
}

// releaseAll gives back references on a failure path. Release errors are
// dropped in favor of the error being returned.
func releaseAll(ctx context.Context, db Backend, vals []Value) {
	for _, v := range vals {
		_ = release(ctx, db, v)
	}
}
