package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]BlobStore {
	t.Helper()

	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	return map[string]BlobStore{
		"memory": NewMemory(),
		"local":  local,
	}
}

func TestBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("hello blob")

			w, err := bs.Create(ctx, "snapshots/a")
			require.NoError(t, err)

			n, err := w.Write(data)
			require.NoError(t, err)
			assert.Equal(t, len(data), n)
			require.NoError(t, w.Close())

			b, err := bs.Open(ctx, "snapshots/a")
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), b.Size())

			buf := make([]byte, 5)
			_, err = b.ReadAt(buf, 6)
			require.NoError(t, err)
			assert.Equal(t, "blob", string(buf[:4]))

			require.NoError(t, b.Close())
		})
	}
}

func TestBlobStore_OpenMissing(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := bs.Open(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBlobStore_CreateNotVisibleUntilClose(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			w, err := bs.Create(ctx, "pending")
			require.NoError(t, err)

			_, err = w.Write([]byte("partial"))
			require.NoError(t, err)

			_, err = bs.Open(ctx, "pending")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, w.Close())

			_, err = bs.Open(ctx, "pending")
			assert.NoError(t, err)
		})
	}
}

func TestBlobStore_Abort(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			w, err := bs.Create(ctx, "aborted")
			require.NoError(t, err)

			_, err = w.Write([]byte("discard me"))
			require.NoError(t, err)
			require.NoError(t, w.Abort())

			_, err = bs.Open(ctx, "aborted")
			assert.ErrorIs(t, err, ErrNotFound)

			keys, err := bs.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestBlobStore_Overwrite(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteAll(ctx, bs, "k", []byte("old")))
			require.NoError(t, WriteAll(ctx, bs, "k", []byte("new value")))

			data, err := ReadAll(ctx, bs, "k")
			require.NoError(t, err)
			assert.Equal(t, "new value", string(data))
		})
	}
}

func TestBlobStore_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteAll(ctx, bs, "gone", []byte("x")))

			require.NoError(t, bs.Delete(ctx, "gone"))
			require.NoError(t, bs.Delete(ctx, "gone"))

			_, err := bs.Open(ctx, "gone")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBlobStore_List(t *testing.T) {
	ctx := context.Background()

	for name, bs := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteAll(ctx, bs, "snapshots/b", []byte("1")))
			require.NoError(t, WriteAll(ctx, bs, "snapshots/a", []byte("2")))
			require.NoError(t, WriteAll(ctx, bs, "other/c", []byte("3")))

			keys, err := bs.List(ctx, "snapshots/")
			require.NoError(t, err)
			assert.Equal(t, []string{"snapshots/a", "snapshots/b"}, keys)

			all, err := bs.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestLocalStore_AbortLeavesNoFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bs, err := NewLocal(dir)
	require.NoError(t, err)

	w, err := bs.Create(ctx, "snap")
	require.NoError(t, err)

	_, err = w.Write([]byte("half written"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_CloseAfterAbort(t *testing.T) {
	ctx := context.Background()

	bs, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	w, err := bs.Create(ctx, "snap")
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	assert.Error(t, w.Close())
	assert.NoError(t, w.Abort())
}

func TestLocalStore_NestedKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bs, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, WriteAll(ctx, bs, "a/b/c", []byte("deep")))

	_, err = os.Stat(filepath.Join(dir, "a", "b", "c"))
	require.NoError(t, err)

	data, err := ReadAll(ctx, bs, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestMemoryStore_OpenSnapshotIsolatedFromOverwrite(t *testing.T) {
	ctx := context.Background()
	bs := NewMemory()

	require.NoError(t, WriteAll(ctx, bs, "k", []byte("first")))

	b, err := bs.Open(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, WriteAll(ctx, bs, "k", []byte("second!")))

	buf := make([]byte, b.Size())
	_, err = b.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf))
}
