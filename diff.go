package bmt

import (
	"context"
	"fmt"
)

type diffItem struct {
	index    Index
	old, new Value
}

type diffStack struct {
	things []diffItem
}

func (stack *diffStack) pop() (diffItem, bool) {
	if len(stack.things) == 0 {
		return diffItem{}, false
	}
	popped := stack.things[len(stack.things)-1]
	stack.things = stack.things[:len(stack.things)-1]
	return popped, true
}

func (stack *diffStack) push(item diffItem) {
	stack.things = append(stack.things, item)
}

// pushChildren queues the children of two nodes at the same position, left
// on top so that positions are visited in ascending order within a depth.
func (stack *diffStack) pushChildren(index Index, o, n Node) {
	stack.push(diffItem{index: index.Right(), old: o.Right, new: n.Right})
	stack.push(diffItem{index: index.Left(), old: o.Left, new: n.Left})
}

// Diff walks two trees stored in db together and calls f for every position
// where they differ. Subtrees with equal hashes are skipped without being
// loaded. Where one tree has a leaf and the other a subtree, or both have
// leaves, f is called with that position and neither side is descended
// further. f returns false to stop early.
func Diff(ctx context.Context, db Backend, old, new Value, f func(index Index, old, new Value) (bool, error)) error {
	stack := diffStack{things: []diffItem{{index: RootIndex, old: old, new: new}}}
	for {
		item, ok := stack.pop()
		if !ok {
			return nil
		}
		if item.old.Equal(item.new) {
			continue
		}
		if item.old.IsLink() && item.new.IsLink() {
			o, err := db.Get(ctx, item.old.Link())
			if err != nil {
				return fmt.Errorf("diff %v: load old: %w", item.index, err)
			}
			n, err := db.Get(ctx, item.new.Link())
			if err != nil {
				return fmt.Errorf("diff %v: load new: %w", item.index, err)
			}
			stack.pushChildren(item.index, o, n)
			continue
		}
		keepGoing, err := f(item.index, item.old, item.new)
		if err != nil {
			return fmt.Errorf("callback: %w", err)
		}
		if !keepGoing {
			return nil
		}
	}
}
