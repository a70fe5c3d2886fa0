package bmt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/zap"
)

// Persist is the interface for loading and storing serialized node records.
// Records are named by the base64 form of their node's hash. Unlike node
// content, a record also carries the node's reference count, so Store must
// overwrite.
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name. A
	// missing name must produce an error wrapping fs.ErrNotExist.
	Load(context.Context, string) ([]byte, error)
	// Delete forgets the given name. Deleting a missing name is not an
	// error.
	Delete(context.Context, string) error
}

// StoreConfig controls how a StoreBackend persists nodes.
type StoreConfig struct {
	BackendConfig

	// StoreNodesWith is used to store, load and delete node records.
	StoreNodesWith Persist

	// NodeCache caches decoded nodes. Optional.
	NodeCache NodeCache
}

// StoreBackend is a Backend whose nodes and counts live in a Persist.
// Count updates are serialized within one StoreBackend; two StoreBackends
// must not share a Persist.
type StoreBackend struct {
	digest    Digest
	persist   Persist
	nodeCache NodeCache
	log       *zap.Logger
	metrics   *Metrics

	l sync.Mutex
}

var _ Backend = (*StoreBackend)(nil)

// NewStoreBackend creates a backend over config.StoreNodesWith.
func NewStoreBackend(config StoreConfig) (*StoreBackend, error) {
	if config.StoreNodesWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set StoreConfig.StoreNodesWith: %w", ErrInvalidParameter)
	}
	c := config.BackendConfig.withDefaults()
	return &StoreBackend{
		digest:    c.Digest,
		persist:   config.StoreNodesWith,
		nodeCache: config.NodeCache,
		log:       c.Logger,
		metrics:   c.Metrics,
	}, nil
}

func (s *StoreBackend) Digest() Digest {
	return s.digest
}

func (s *StoreBackend) Get(ctx context.Context, key Hash) (Node, error) {
	if s.nodeCache != nil {
		if node, ok := s.nodeCache.Get(key); ok {
			return node.(Node), nil
		}
	}
	s.l.Lock()
	r, err := s.load(ctx, key)
	s.l.Unlock()
	if err != nil {
		return Node{}, fmt.Errorf("get: %w", err)
	}
	return r.node, nil
}

func (s *StoreBackend) Insert(ctx context.Context, node Node) (Hash, error) {
	key := node.Key(s.digest)
	s.l.Lock()
	defer s.l.Unlock()
	r, err := s.load(ctx, key)
	if err == nil {
		r.count++
		if err = s.store(ctx, key, r); err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		s.metrics.nodeShared()
		return key, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("insert: %w", err)
	}
	children := make([]record, 0, 2)
	links := node.links()
	for _, child := range links {
		cr, err := s.load(ctx, child)
		if err != nil {
			return "", fmt.Errorf("insert %s: child: %w", key, err)
		}
		children = append(children, cr)
	}
	for i, child := range links {
		// both children may be the same node
		if i == 1 && links[0] == child {
			children[1] = children[0]
		}
		children[i].count++
		if err := s.store(ctx, child, children[i]); err != nil {
			return "", fmt.Errorf("insert %s: retain child: %w", key, err)
		}
	}
	if err := s.store(ctx, key, record{count: 1, node: node}); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	s.metrics.nodeInserted()
	return key, nil
}

func (s *StoreBackend) Decrement(ctx context.Context, key Hash) error {
	s.l.Lock()
	defer s.l.Unlock()
	pending := []Hash{key}
	for len(pending) > 0 {
		k := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		r, err := s.load(ctx, k)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("decrement %s: %w", k, ErrRefcountUnderflow)
		} else if err != nil {
			return fmt.Errorf("decrement: %w", err)
		}
		r.count--
		if r.count > 0 {
			if err := s.store(ctx, k, r); err != nil {
				return fmt.Errorf("decrement: %w", err)
			}
			continue
		}
		if err := s.persist.Delete(ctx, k.String()); err != nil {
			return fmt.Errorf("persist delete %s: %w", k, err)
		}
		if s.nodeCache != nil {
			s.nodeCache.Remove(k)
		}
		s.metrics.nodeCollected()
		s.log.Debug("collected node", zap.Stringer("key", k))
		pending = append(pending, r.node.links()...)
	}
	return nil
}

func (s *StoreBackend) load(ctx context.Context, key Hash) (record, error) {
	b, err := s.persist.Load(ctx, key.String())
	if errors.Is(err, fs.ErrNotExist) {
		return record{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	} else if err != nil {
		return record{}, fmt.Errorf("persist load %s: %w", key, err)
	}
	r, err := unmarshalRecord(b)
	if err != nil {
		s.log.Error("undecodable node record", zap.Stringer("key", key), zap.Error(err))
		return record{}, fmt.Errorf("unmarshaling %s: %v: %w", key, err, ErrCorrupted)
	}
	if s.nodeCache != nil {
		s.nodeCache.Add(key, r.node)
	}
	return r, nil
}

func (s *StoreBackend) store(ctx context.Context, key Hash, r record) error {
	err := s.persist.Store(ctx, key.String(), marshalRecord(r))
	if err != nil {
		return fmt.Errorf("persist store %s: %w", key, err)
	}
	if s.nodeCache != nil {
		s.nodeCache.Add(key, r.node)
	}
	return nil
}
