/*
Package bmt provides persistent, structurally shared binary Merkle trees
addressed by generalized index, and the containers built on them: fixed
tuples, variable-length vectors, and their packed forms for elements
narrower than a hash. Trees can be much larger than memory. Nodes can be
stored in anything that can store, load and delete named blobs, like a
filesystem, KV store, or blob store.

Uses

- Commitments to lists and records, where one root hash stands for the
whole contents and a change to one element rewrites only its path

- Cheap versioning: a Clone shares every node with its origin until one of
them is modified

- Finding what changed between two versions by walking only the subtrees
whose hashes differ (see Diff)

Generalized indices

The root is index 1 and the children of index i are 2i and 2i+1, so the
nodes at depth d are 2^d through 2^(d+1)-1 and the binary digits of an
index below its leading one spell out the route to it from the root, 0 for
left and 1 for right.

Nodes and leaves

Every intermediate node has exactly two children, each either a leaf
(opaque bytes, carried inline by its parent) or a link to another stored
node. A node is stored under the hash of its two children's hashes, so
equal subtrees are stored once. A leaf exactly as wide as the digest is its
own hash; any other leaf is digested first.

Reference counting

A Backend stores nodes with a count of the references to each: one per
parent node and one per tree handle. Trees never delete nodes directly; they
release references, and a node whose count falls to zero is removed along
with whatever it alone kept alive. Every tree that is created, loaded or
cloned must therefore be dropped when no longer needed.

	ctx := context.Background()
	db := bmt.NewInMemoryBackend(nil)
	v, _ := bmt.NewVec(ctx, db)
	_ = v.Push(ctx, db, []byte("hello"))
	root := v.Root()
	_ = v.Drop(ctx, db)

Concurrency

A tree handle is used by one goroutine at a time. Handles over the same
Backend may be used concurrently; the provided backends serialize their
reference count updates.
*/
package bmt
