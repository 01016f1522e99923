package matcha

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/codec"
)

// populateStore fills a two-space store with a deterministic data set,
// including an explicit high ID so allocator state is visible after a
// round trip.
func populateStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	res, err := s.UpsertBatch(ctx, []UpsertItem{
		{
			Vectors: map[string][]float32{
				"image": {1, 0, 0, 0},
				"text":  {1, 0},
			},
			Payload: Payload{JoinKey: "sku-1", Extra: map[string]string{"brand": "acme"}},
		},
		{
			Vectors: map[string][]float32{"image": {0.9, 0.1, 0, 0}},
			Payload: Payload{JoinKey: "sku-2"},
		},
		{
			ID:      ID(41),
			Vectors: map[string][]float32{"text": {0, 1}},
			Payload: Payload{JoinKey: "sku-3"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Stored())
}

// requireStoresMatch asserts that a loaded store reproduces the data
// set written by populateStore.
func requireStoresMatch(t *testing.T, loaded *Store) {
	t.Helper()
	ctx := context.Background()

	assert.Equal(t, 3, loaded.Len())

	specs := loaded.Spaces()
	require.Len(t, specs, 2)
	assert.Equal(t, SpaceSpec{Name: "image", Dimension: 4, Metric: MetricCosine}, specs[0])
	assert.Equal(t, SpaceSpec{Name: "text", Dimension: 2, Metric: MetricCosine}, specs[1])

	item, err := loaded.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "sku-1", item.Payload.JoinKey)
	assert.Equal(t, "acme", item.Payload.Extra["brand"])
	assert.Equal(t, []string{"image", "text"}, item.Spaces())

	hits, err := loaded.Search(ctx, "image", []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "sku-1", hits[0].Payload.JoinKey)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "sku-2", hits[1].Payload.JoinKey)

	// The allocator resumes past the highest snapshotted ID.
	assert.Equal(t, ItemID(42), loaded.Stats().NextID)
	id, err := loaded.Upsert(ctx, UpsertItem{
		Vectors: map[string][]float32{"text": {1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, ItemID(42), id)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("Writer", func(t *testing.T) {
		s, err := New().Space("image", 4).Space("text", 2).Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)

		var buf bytes.Buffer
		require.NoError(t, s.SaveToWriter(ctx, &buf))

		loaded, err := LoadFromReader(&buf)
		require.NoError(t, err)
		defer loaded.Close()
		requireStoresMatch(t, loaded)
	})

	t.Run("File", func(t *testing.T) {
		s, err := New().Space("image", 4).Space("text", 2).Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)

		path := filepath.Join(t.TempDir(), "matcha.snap")
		require.NoError(t, s.SaveToFile(ctx, path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)
		defer loaded.Close()
		requireStoresMatch(t, loaded)
	})

	t.Run("BlobStore", func(t *testing.T) {
		bs := blobstore.NewMemory()

		s, err := New().Space("image", 4).Space("text", 2).Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)

		require.NoError(t, s.SaveToBlobStore(ctx, bs, "snapshots/main"))

		loaded, err := LoadFromBlobStore(ctx, bs, "snapshots/main")
		require.NoError(t, err)
		defer loaded.Close()
		requireStoresMatch(t, loaded)
	})

	t.Run("MissingBlobKey", func(t *testing.T) {
		_, err := LoadFromBlobStore(ctx, blobstore.NewMemory(), "nope")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s, err := New().Space("image", 4).Build()
		require.NoError(t, err)
		defer s.Close()

		var buf bytes.Buffer
		require.NoError(t, s.SaveToWriter(ctx, &buf))

		loaded, err := LoadFromReader(&buf)
		require.NoError(t, err)
		defer loaded.Close()
		assert.Equal(t, 0, loaded.Len())
		require.Len(t, loaded.Spaces(), 1)
		assert.Equal(t, "image", loaded.Spaces()[0].Name)
	})

	t.Run("CompressionVariants", func(t *testing.T) {
		for _, ct := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(ct.String(), func(t *testing.T) {
				s, err := New().
					Space("image", 4).
					Space("text", 2).
					Compression(ct).
					Build()
				require.NoError(t, err)
				defer s.Close()
				populateStore(t, s)

				var buf bytes.Buffer
				require.NoError(t, s.SaveToWriter(ctx, &buf))

				// Loading needs no compression hint: the container records it.
				loaded, err := LoadFromReader(&buf)
				require.NoError(t, err)
				defer loaded.Close()
				requireStoresMatch(t, loaded)
			})
		}
	})

	t.Run("CodecRecordedInContainer", func(t *testing.T) {
		s, err := New().
			Space("image", 4).
			Space("text", 2).
			Codec(codec.Msgpack{}).
			Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)

		var buf bytes.Buffer
		require.NoError(t, s.SaveToWriter(ctx, &buf))

		loaded, err := LoadFromReader(&buf)
		require.NoError(t, err)
		defer loaded.Close()
		requireStoresMatch(t, loaded)
	})

	t.Run("TieOrderSurvivesReload", func(t *testing.T) {
		s, err := New().Space("image", 2).Build()
		require.NoError(t, err)
		defer s.Close()

		for i := 0; i < 4; i++ {
			_, err := s.Upsert(ctx, UpsertItem{
				Vectors: map[string][]float32{"image": {1, 1}},
			})
			require.NoError(t, err)
		}

		var buf bytes.Buffer
		require.NoError(t, s.SaveToWriter(ctx, &buf))
		loaded, err := LoadFromReader(&buf)
		require.NoError(t, err)
		defer loaded.Close()

		want, err := s.Search(ctx, "image", []float32{1, 1}, 4)
		require.NoError(t, err)
		got, err := loaded.Search(ctx, "image", []float32{1, 1}, 4)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
		}
	})
}

func TestSnapshotCorruption(t *testing.T) {
	ctx := context.Background()

	snapshotBytes := func(t *testing.T) []byte {
		t.Helper()
		s, err := New().Space("image", 4).Build()
		require.NoError(t, err)
		defer s.Close()
		_, err = s.Upsert(ctx, UpsertItem{
			Vectors: map[string][]float32{"image": {1, 0, 0, 0}},
			Payload: Payload{JoinKey: "sku-1"},
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, s.SaveToWriter(ctx, &buf))
		return buf.Bytes()
	}

	t.Run("BadMagic", func(t *testing.T) {
		data := snapshotBytes(t)
		data[0] = 'X'

		_, err := LoadFromReader(bytes.NewReader(data))
		var sfe *SnapshotFormatError
		assert.ErrorAs(t, err, &sfe)
	})

	t.Run("FlippedByte", func(t *testing.T) {
		data := snapshotBytes(t)
		data[len(data)-5] ^= 0xff

		_, err := LoadFromReader(bytes.NewReader(data))
		var sfe *SnapshotFormatError
		assert.ErrorAs(t, err, &sfe)
	})

	t.Run("Truncated", func(t *testing.T) {
		data := snapshotBytes(t)

		_, err := LoadFromReader(bytes.NewReader(data[:len(data)-7]))
		var sfe *SnapshotFormatError
		assert.ErrorAs(t, err, &sfe)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := LoadFromReader(bytes.NewReader([]byte("not a snapshot at all")))
		var sfe *SnapshotFormatError
		assert.ErrorAs(t, err, &sfe)
	})
}

func TestSnapshotLazyLoad(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, bs blobstore.BlobStore, key string) {
		t.Helper()
		s, err := New().Space("image", 4).Space("text", 2).Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)
		require.NoError(t, s.SaveToBlobStore(ctx, bs, key))
	}

	t.Run("LoadsOnFirstUse", func(t *testing.T) {
		bs := blobstore.NewMemory()
		seed(t, bs, "snapshots/main")

		s, err := New().SnapshotStore(bs, "snapshots/main").Build()
		require.NoError(t, err)
		defer s.Close()

		// First operation triggers the load.
		hits, err := s.Search(ctx, "image", []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "sku-1", hits[0].Payload.JoinKey)
		assert.Equal(t, 3, s.Len())
	})

	t.Run("MissingSnapshotStartsEmpty", func(t *testing.T) {
		s, err := New().
			Space("image", 4).
			SnapshotStore(blobstore.NewMemory(), "snapshots/main").
			Build()
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.EnsureReady(ctx))
		assert.Equal(t, 0, s.Len())

		_, err = s.Upsert(ctx, UpsertItem{
			Vectors: map[string][]float32{"image": {1, 0, 0, 0}},
		})
		require.NoError(t, err)
	})

	t.Run("BuilderSpacesMergeIntoSnapshot", func(t *testing.T) {
		bs := blobstore.NewMemory()
		seed(t, bs, "snapshots/main")

		s, err := New().
			Space("audio", 8).
			SnapshotStore(bs, "snapshots/main").
			Build()
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.EnsureReady(ctx))
		specs := s.Spaces()
		require.Len(t, specs, 3)
		assert.Equal(t, "audio", specs[0].Name)
		assert.Equal(t, "image", specs[1].Name)
		assert.Equal(t, "text", specs[2].Name)
	})

	t.Run("BuilderSpaceConflictsWithSnapshot", func(t *testing.T) {
		bs := blobstore.NewMemory()
		seed(t, bs, "snapshots/main")

		s, err := New().
			Space("image", 8).
			SnapshotStore(bs, "snapshots/main").
			Build()
		require.NoError(t, err)
		defer s.Close()

		err = s.EnsureReady(ctx)
		var mismatch *SpaceMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "image", mismatch.Name)

		// The store stays unready and reports the same failure again.
		_, err = s.Upsert(ctx, UpsertItem{
			Vectors: map[string][]float32{"image": {1, 0, 0, 0, 0, 0, 0, 0}},
		})
		require.ErrorAs(t, err, &mismatch)
	})

	t.Run("CorruptSnapshotStaysUnready", func(t *testing.T) {
		bs := blobstore.NewMemory()
		require.NoError(t, blobstore.WriteAll(ctx, bs, "snapshots/main", []byte("garbage")))

		s, err := New().SnapshotStore(bs, "snapshots/main").Build()
		require.NoError(t, err)
		defer s.Close()

		err = s.EnsureReady(ctx)
		var sfe *SnapshotFormatError
		require.ErrorAs(t, err, &sfe)

		// Replacing the blob with a good snapshot lets the next call succeed.
		seed(t, bs, "snapshots/main")
		require.NoError(t, s.EnsureReady(ctx))
		assert.Equal(t, 3, s.Len())
	})

	t.Run("ConcurrentEnsureReadyLoadsOnce", func(t *testing.T) {
		inner := blobstore.NewMemory()
		seed(t, inner, "snapshots/main")
		bs := &countingBlobStore{BlobStore: inner}

		s, err := New().SnapshotStore(bs, "snapshots/main").Build()
		require.NoError(t, err)
		defer s.Close()

		const callers = 16
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.EnsureReady(ctx)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "caller %d", i)
		}
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, int32(1), bs.opens.Load())
	})
}

// countingBlobStore counts Open calls so tests can assert how many times
// a snapshot blob was actually read.
type countingBlobStore struct {
	blobstore.BlobStore
	opens atomic.Int32
}

func (c *countingBlobStore) Open(ctx context.Context, key string) (blobstore.Blob, error) {
	c.opens.Add(1)
	return c.BlobStore.Open(ctx, key)
}

func TestSaveSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("Unconfigured", func(t *testing.T) {
		s, err := New().Space("image", 4).Build()
		require.NoError(t, err)
		defer s.Close()

		assert.ErrorIs(t, s.SaveSnapshot(ctx), ErrContractViolation)
	})

	t.Run("RoundTripThroughConfiguredStore", func(t *testing.T) {
		bs := blobstore.NewMemory()

		s, err := New().
			Space("image", 4).
			Space("text", 2).
			SnapshotStore(bs, "snapshots/main").
			Build()
		require.NoError(t, err)
		defer s.Close()
		populateStore(t, s)

		require.NoError(t, s.SaveSnapshot(ctx))

		loaded, err := LoadFromBlobStore(ctx, bs, "snapshots/main")
		require.NoError(t, err)
		defer loaded.Close()
		requireStoresMatch(t, loaded)
	})
}
