package bmt

import (
	"bytes"
	"fmt"
)

// Value is a reference to a child in the tree: either a leaf, whose bytes
// are carried inline by its parent, or a link naming a stored intermediate
// node. The two kinds are told apart by this tag, never by their bytes.
type Value struct {
	leaf   []byte
	link   Hash
	isLink bool
}

// LeafValue wraps a copy of opaque leaf bytes. The caller may reuse b.
func LeafValue(b []byte) Value {
	return Value{leaf: bytes.Clone(b)}
}

// LinkValue refers to the stored node with the given key.
func LinkValue(h Hash) Value {
	return Value{link: h, isLink: true}
}

// IsLink reports whether the value refers to an intermediate node.
func (v Value) IsLink() bool {
	return v.isLink
}

// Link returns the referenced node key, or "" for a leaf.
func (v Value) Link() Hash {
	return v.link
}

// Leaf returns a copy of the leaf bytes, or nil for a link.
func (v Value) Leaf() []byte {
	return bytes.Clone(v.leaf)
}

// Hash is the value's contribution to its parent's hash.
func (v Value) Hash(d Digest) Hash {
	if v.isLink {
		return v.link
	}
	return d.LeafHash(v.leaf)
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.isLink != o.isLink {
		return false
	}
	if v.isLink {
		return v.link == o.link
	}
	return bytes.Equal(v.leaf, o.leaf)
}

func (v Value) String() string {
	if v.isLink {
		return "link:" + v.link.String()
	}
	return fmt.Sprintf("leaf:%x", v.leaf)
}

// Node is a stored intermediate: exactly two children.
type Node struct {
	Left  Value
	Right Value
}

// Key is the content address of the node under the given digest.
func (n Node) Key(d Digest) Hash {
	return d.Compress(n.Left.Hash(d), n.Right.Hash(d))
}

// Child returns the selected child.
func (n Node) Child(s Selection) Value {
	if s == Left {
		return n.Left
	}
	return n.Right
}

// With returns a copy of n with the selected child replaced.
func (n Node) With(s Selection, v Value) Node {
	if s == Left {
		n.Left = v
	} else {
		n.Right = v
	}
	return n
}

func (n Node) links() []Hash {
	var l []Hash
	if n.Left.isLink {
		l = append(l, n.Left.link)
	}
	if n.Right.isLink {
		l = append(l, n.Right.link)
	}
	return l
}

func zeroLeaf(d Digest) Value {
	return LeafValue(make([]byte, d.Size()))
}
