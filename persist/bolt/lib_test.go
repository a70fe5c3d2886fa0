package bolt

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestStoreLoadDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "nodes.bolt")
	p, err := NewPersist(Options{FilePath: path})
	require.NoError(t, err)

	_, err = p.Load(ctx, "foo")
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, p.Store(ctx, "foo", []byte("hello")))
	loaded, err := p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), loaded)

	require.NoError(t, p.Store(ctx, "foo", []byte("again")))
	loaded, err = p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), loaded)

	require.NoError(t, p.Delete(ctx, "foo"))
	_, err = p.Load(ctx, "foo")
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NoError(t, p.Close())
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bolt")
	p, err := NewPersist(Options{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, p.Store(ctx, "k", []byte("v")))
	require.NoError(t, p.Close())

	ro, err := NewPersist(Options{FilePath: path, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	loaded, err := ro.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), loaded)
}
