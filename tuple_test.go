package bmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuple(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		tu, err := NewTuple(ctx, db, 5)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), tu.Len())
		for i := uint64(0); i < 5; i++ {
			b, err := tu.Get(ctx, db, i)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, db.Digest().Size()), b)
		}
		require.NoError(t, tu.Set(ctx, db, 4, []byte("four")))
		b, err := tu.Get(ctx, db, 4)
		require.NoError(t, err)
		assert.Equal(t, []byte("four"), b)

		_, err = tu.Get(ctx, db, 5)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		assert.ErrorIs(t, tu.Set(ctx, db, 5, nil), ErrIndexOutOfRange)

		loaded, err := LoadTuple(ctx, db, tu.Root(), 5)
		require.NoError(t, err)
		_, err = LoadTuple(ctx, db, tu.Root(), 2)
		assert.ErrorIs(t, err, ErrCorrupted)
		require.NoError(t, tu.Drop(ctx, db))
		b, err = loaded.Get(ctx, db, 4)
		require.NoError(t, err)
		assert.Equal(t, []byte("four"), b)
		require.NoError(t, loaded.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestTupleEmptyRoot(t *testing.T) {
	t.Parallel()
	db := NewInMemoryBackend(&BackendConfig{Digest: SHA256})
	d := db.Digest()
	tu, err := NewTuple(ctx, db, 4)
	require.NoError(t, err)
	z := Hash(make([]byte, 32))
	pair := d.Compress(z, z)
	assert.Equal(t, d.Compress(pair, pair), tu.Root().Link())
	// two distinct nodes; the zero pair is shared
	assert.Equal(t, 2, db.Len())
	require.NoError(t, tu.Drop(ctx, db))
	assert.Equal(t, 0, db.Len())
}

func TestTupleSingle(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		for _, k := range []uint64{0, 1} {
			tu, err := NewTuple(ctx, db, k)
			require.NoError(t, err)
			assert.False(t, tu.Root().IsLink())
			if k == 1 {
				require.NoError(t, tu.Set(ctx, db, 0, []byte("only")))
				b, err := tu.Get(ctx, db, 0)
				require.NoError(t, err)
				assert.Equal(t, []byte("only"), b)
			} else {
				_, err := tu.Get(ctx, db, 0)
				assert.ErrorIs(t, err, ErrIndexOutOfRange)
			}
			require.NoError(t, tu.Drop(ctx, db))
		}
		assert.Equal(t, 0, db.Len())
	})
}

func TestTupleLinkWhereLeafExpected(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		inner, err := NewTuple(ctx, db, 2)
		require.NoError(t, err)
		r := NewRaw(db)
		require.NoError(t, r.Set(ctx, db, 2, LeafValue([]byte("x"))))
		require.NoError(t, r.Set(ctx, db, 3, inner.Root()))

		// the link at 3 makes the tree deeper than two leaves need
		_, err = LoadTuple(ctx, db, r.Root(), 2)
		assert.ErrorIs(t, err, ErrCorrupted)
		tu, err := LoadTuple(ctx, db, r.Root(), 4)
		require.NoError(t, err)
		_, err = tu.Get(ctx, db, 0)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "a leaf above leaf depth is unpopulated")
		b, err := tu.Get(ctx, db, 3)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, db.Digest().Size()), b)

		for _, tree := range []Tree{tu, r, inner} {
			require.NoError(t, tree.Drop(ctx, db))
		}
		assert.Equal(t, 0, db.Len())
	})
}
