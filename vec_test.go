package bmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVecHundred(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		v, err := NewVec(ctx, db)
		require.NoError(t, err)
		for i := 0; i < 100; i++ {
			require.NoError(t, v.Push(ctx, db, []byte{byte(i)}))
		}
		assert.Equal(t, uint64(100), v.Len())
		assert.Equal(t, uint(7), v.Depth())
		b, err := v.Get(ctx, db, 50)
		require.NoError(t, err)
		assert.Equal(t, []byte{50}, b)
		_, err = v.Get(ctx, db, 100)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		assert.ErrorIs(t, v.Set(ctx, db, 100, []byte{0}), ErrIndexOutOfRange)

		require.NoError(t, v.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestVecEmpty(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		v, err := NewVec(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), v.Len())
		assert.True(t, v.Root().IsLink())
		_, err = v.Pop(ctx, db)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = v.Get(ctx, db, 0)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		require.NoError(t, v.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestVecLengthIsCommitted(t *testing.T) {
	t.Parallel()
	db := NewInMemoryBackend(&BackendConfig{Digest: SHA256})
	d := db.Digest()
	a, b := chunk(d, 0xa), chunk(d, 0xb)
	v, err := NewVec(ctx, db)
	require.NoError(t, err)
	require.NoError(t, v.Push(ctx, db, a))
	require.NoError(t, v.Push(ctx, db, b))

	length := make([]byte, 32)
	length[0] = 2
	want := d.Compress(d.Compress(Hash(a), Hash(b)), Hash(length))
	assert.Equal(t, want, v.Root().Link())

	// same items, different length
	w, err := NewVec(ctx, db)
	require.NoError(t, err)
	require.NoError(t, w.Push(ctx, db, a))
	require.NoError(t, w.Push(ctx, db, b))
	require.NoError(t, w.Push(ctx, db, make([]byte, 32)))
	assert.NotEqual(t, v.Root().Link(), w.Root().Link())

	require.NoError(t, v.Drop(ctx, db))
	require.NoError(t, w.Drop(ctx, db))
	assert.Equal(t, 0, db.Len())
}

func TestVecPopIsCanonical(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		build := func(n int) *Vec {
			v, err := NewVec(ctx, db)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				require.NoError(t, v.Push(ctx, db, []byte{byte(i)}))
			}
			return v
		}
		five := build(5)
		nine := build(9)
		for i := 8; i >= 5; i-- {
			b, err := nine.Pop(ctx, db)
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, b)
		}
		assert.Equal(t, uint64(5), nine.Len())
		assert.Equal(t, uint(3), nine.Depth())
		assert.True(t, five.Root().Equal(nine.Root()))

		for i := 4; i >= 0; i-- {
			_, err := nine.Pop(ctx, db)
			require.NoError(t, err)
		}
		assert.Equal(t, uint(0), nine.Depth())
		empty, err := NewVec(ctx, db)
		require.NoError(t, err)
		assert.True(t, empty.Root().Equal(nine.Root()))

		require.NoError(t, nine.Push(ctx, db, []byte{0}))
		b, err := nine.Get(ctx, db, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{0}, b)

		for _, v := range []*Vec{five, nine, empty} {
			require.NoError(t, v.Drop(ctx, db))
		}
		assert.Equal(t, 0, db.Len())
	})
}

func TestVecCloneIsolation(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		v, err := NewVec(ctx, db)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			require.NoError(t, v.Push(ctx, db, []byte{byte(i)}))
		}
		c, err := v.Clone(ctx, db)
		require.NoError(t, err)
		require.NoError(t, v.Set(ctx, db, 3, []byte("changed")))
		_, err = v.Pop(ctx, db)
		require.NoError(t, err)
		require.NoError(t, v.Drop(ctx, db))

		assert.Equal(t, uint64(10), c.Len())
		for i := 0; i < 10; i++ {
			b, err := c.Get(ctx, db, uint64(i))
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, b)
		}
		require.NoError(t, c.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestLoadVec(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		v, err := NewVec(ctx, db)
		require.NoError(t, err)
		for i := 0; i < 6; i++ {
			require.NoError(t, v.Push(ctx, db, []byte{byte(i)}))
		}
		loaded, err := LoadVec(ctx, db, v.Root())
		require.NoError(t, err)
		assert.Equal(t, uint64(6), loaded.Len())
		assert.Equal(t, uint(3), loaded.Depth())
		require.NoError(t, v.Drop(ctx, db))

		require.NoError(t, loaded.Push(ctx, db, []byte{6}))
		b, err := loaded.Get(ctx, db, 5)
		require.NoError(t, err)
		assert.Equal(t, []byte{5}, b)
		require.NoError(t, loaded.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())

		_, err = LoadVec(ctx, db, LeafValue([]byte{1}))
		assert.ErrorIs(t, err, ErrCorrupted)
	})
}

func TestLoadVecRejectsMismatchedLength(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		items := NewRaw(db)
		for i := uint64(0); i < 4; i++ {
			require.NoError(t, items.Set(ctx, db, LeafIndex(2, i), LeafValue([]byte{byte(i)})))
		}
		// four items claiming a length of one
		key, err := db.Insert(ctx, Node{Left: items.Root(), Right: LeafValue(encodeLength(db.Digest(), 1))})
		require.NoError(t, err)
		_, err = LoadVec(ctx, db, LinkValue(key))
		assert.ErrorIs(t, err, ErrCorrupted)

		require.NoError(t, db.Decrement(ctx, key))
		require.NoError(t, items.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestVecReusedBuffer(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		reused, err := NewVec(ctx, db)
		require.NoError(t, err)
		fresh, err := NewVec(ctx, db)
		require.NoError(t, err)
		buf := make([]byte, 1)
		for i := 0; i < 4; i++ {
			buf[0] = byte(i)
			require.NoError(t, reused.Push(ctx, db, buf))
			require.NoError(t, fresh.Push(ctx, db, []byte{byte(i)}))
		}
		for i := 0; i < 4; i++ {
			b, err := reused.Get(ctx, db, uint64(i))
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, b)
		}
		assert.True(t, fresh.Root().Equal(reused.Root()))

		buf[0] = 7
		require.NoError(t, reused.Set(ctx, db, 1, buf))
		buf[0] = 1
		b, err := reused.Get(ctx, db, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{7}, b)

		require.NoError(t, reused.Drop(ctx, db))
		require.NoError(t, fresh.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}

func TestVecGetReturnsCopy(t *testing.T) {
	eachBackend(t, func(t *testing.T, db sizedBackend) {
		v, err := NewVec(ctx, db)
		require.NoError(t, err)
		require.NoError(t, v.Push(ctx, db, []byte{1}))
		require.NoError(t, v.Push(ctx, db, []byte{2}))
		root := v.Root()

		b, err := v.Get(ctx, db, 0)
		require.NoError(t, err)
		b[0] = 99
		b, err = v.Get(ctx, db, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{1}, b)

		popped, err := v.Pop(ctx, db)
		require.NoError(t, err)
		popped[0] = 99
		require.NoError(t, v.Push(ctx, db, []byte{2}))
		assert.True(t, root.Equal(v.Root()))

		require.NoError(t, v.Drop(ctx, db))
		assert.Equal(t, 0, db.Len())
	})
}
