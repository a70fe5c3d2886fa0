package bmt

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

type inMemoryStore struct {
	entries map[string][]byte
	l       sync.Mutex
}

// NewInMemoryStore provides a Persist that keeps records in a map, usually
// for testing.
func NewInMemoryStore() Persist {
	return &inMemoryStore{}
}

func (ims *inMemoryStore) Store(ctx context.Context, key string, value []byte) error {
	stored := append([]byte(nil), value...)
	ims.l.Lock()
	if ims.entries == nil {
		ims.entries = map[string][]byte{key: stored}
	} else {
		ims.entries[key] = stored
	}
	ims.l.Unlock()
	return nil
}

func (ims *inMemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	ims.l.Lock()
	value, ok := ims.entries[key]
	ims.l.Unlock()
	if !ok {
		return nil, fmt.Errorf("inMemoryStore entry not found for %s: %w", key, fs.ErrNotExist)
	}
	return value, nil
}

func (ims *inMemoryStore) Delete(ctx context.Context, key string) error {
	ims.l.Lock()
	delete(ims.entries, key)
	ims.l.Unlock()
	return nil
}

func (ims *inMemoryStore) Len() int {
	ims.l.Lock()
	defer ims.l.Unlock()
	return len(ims.entries)
}
