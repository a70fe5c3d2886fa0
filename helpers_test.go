package bmt

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	ctx                     = context.Background()
	defaultGopterParameters = gopter.DefaultTestParameters()
)

// sizedBackend is a Backend whose stored node count can be inspected.
type sizedBackend interface {
	Backend
	Len() int
}

type storeBackendWithLen struct {
	*StoreBackend
	store *inMemoryStore
}

func (s storeBackendWithLen) Len() int {
	return s.store.Len()
}

func newTestStoreBackend(t testing.TB, cache NodeCache) sizedBackend {
	store := NewInMemoryStore()
	sb, err := NewStoreBackend(StoreConfig{
		BackendConfig:  BackendConfig{Logger: zaptest.NewLogger(t)},
		StoreNodesWith: store,
		NodeCache:      cache,
	})
	require.NoError(t, err)
	return storeBackendWithLen{sb, store.(*inMemoryStore)}
}

// eachBackend runs f against every provided Backend implementation.
func eachBackend(t *testing.T, f func(t *testing.T, db sizedBackend)) {
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		f(t, NewInMemoryBackend(&BackendConfig{Logger: zaptest.NewLogger(t)}))
	})
	t.Run("store", func(t *testing.T) {
		t.Parallel()
		f(t, newTestStoreBackend(t, nil))
	})
	t.Run("store+cache", func(t *testing.T) {
		t.Parallel()
		f(t, newTestStoreBackend(t, NewNodeCache(64)))
	})
}

func chunk(d Digest, b ...byte) []byte {
	c := make([]byte, d.Size())
	copy(c, b)
	return c
}
