package bmt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type memEntry struct {
	node  Node
	count uint64
}

// InMemoryBackend is the reference Backend: a map from key to node and
// reference count.
type InMemoryBackend struct {
	digest  Digest
	log     *zap.Logger
	metrics *Metrics

	l       sync.Mutex
	entries map[Hash]*memEntry
}

var _ Backend = (*InMemoryBackend)(nil)

// NewInMemoryBackend creates an empty backend. A nil config selects the
// defaults.
func NewInMemoryBackend(config *BackendConfig) *InMemoryBackend {
	c := config.withDefaults()
	return &InMemoryBackend{
		digest:  c.Digest,
		log:     c.Logger,
		metrics: c.Metrics,
		entries: map[Hash]*memEntry{},
	}
}

func (b *InMemoryBackend) Digest() Digest {
	return b.digest
}

func (b *InMemoryBackend) Get(ctx context.Context, key Hash) (Node, error) {
	b.l.Lock()
	e, ok := b.entries[key]
	b.l.Unlock()
	if !ok {
		return Node{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return e.node, nil
}

func (b *InMemoryBackend) Insert(ctx context.Context, node Node) (Hash, error) {
	key := node.Key(b.digest)
	b.l.Lock()
	defer b.l.Unlock()
	if e, ok := b.entries[key]; ok {
		e.count++
		b.metrics.nodeShared()
		return key, nil
	}
	children := node.links()
	for _, child := range children {
		if _, ok := b.entries[child]; !ok {
			return "", fmt.Errorf("insert %s: child %s: %w", key, child, ErrNotFound)
		}
	}
	for _, child := range children {
		b.entries[child].count++
	}
	b.entries[key] = &memEntry{node: node, count: 1}
	b.metrics.nodeInserted()
	return key, nil
}

func (b *InMemoryBackend) Decrement(ctx context.Context, key Hash) error {
	b.l.Lock()
	defer b.l.Unlock()
	pending := []Hash{key}
	for len(pending) > 0 {
		k := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		e, ok := b.entries[k]
		if !ok {
			return fmt.Errorf("decrement %s: %w", k, ErrRefcountUnderflow)
		}
		e.count--
		if e.count > 0 {
			continue
		}
		delete(b.entries, k)
		b.metrics.nodeCollected()
		b.log.Debug("collected node", zap.Stringer("key", k))
		pending = append(pending, e.node.links()...)
	}
	return nil
}

// Len returns the number of stored nodes.
func (b *InMemoryBackend) Len() int {
	b.l.Lock()
	defer b.l.Unlock()
	return len(b.entries)
}

// Count returns the reference count of key, and whether it is stored.
func (b *InMemoryBackend) Count(key Hash) (uint64, bool) {
	b.l.Lock()
	defer b.l.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return 0, false
	}
	return e.count, true
}
