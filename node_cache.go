package bmt

import lru "github.com/hashicorp/golang-lru"

// NodeCache caches decoded nodes loaded from a Persist. Nodes are
// immutable, but a collected node must be removed so that a later Get
// reports it missing.
type NodeCache interface {
	// Add adds a freshly-loaded or freshly-stored node to the cache.
	Add(key, value interface{})
	// Get retrieves the already-decoded node with the given hash, if cached.
	Get(key interface{}) (value interface{}, ok bool)
	// Remove evicts a collected node.
	Remove(key interface{})
}

// NewNodeCache creates a new LRU-based node cache of the given size. One
// cache may only be shared by backends over the same Persist.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
