package integration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchadb/matcha"
	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/ingest"
	"github.com/matchadb/matcha/testutil"
)

// TestConcurrentIngestSearchSnapshot races ingest runs against searches
// and snapshot saves. Readers must never observe partial writes and
// snapshots must stay loadable throughout.
func TestConcurrentIngestSearchSnapshot(t *testing.T) {
	const (
		dim     = 32
		writers = 3
		perRun  = 40
	)

	ctx := context.Background()
	rng := testutil.NewRNG(7)
	blobs := blobstore.NewMemory()

	store, err := matcha.New().
		Space("image", dim).
		SnapshotStore(blobs, "snapshots/latest").
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Seed one item so searches always have something to rank.
	_, err = store.Upsert(ctx, matcha.UpsertItem{
		Vectors: map[string][]float32{"image": rng.UnitVector(dim)},
		Payload: matcha.Payload{JoinKey: "seed"},
	})
	require.NoError(t, err)

	queries := rng.UnitVectors(8, dim)

	var wg sync.WaitGroup
	errCh := make(chan error, writers+6)

	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			vecs := rng.UnitVectors(perRun, dim)
			records := make(ingest.SliceSource, perRun)
			for i, v := range vecs {
				records[i] = ingest.Record{
					JoinKey: fmt.Sprintf("w%d-sku-%d", w, i),
					Vectors: map[string][]float32{"image": v},
				}
			}

			in := ingest.New(store, ingest.WithChunkSize(8), ingest.WithConcurrency(2))
			report, err := in.Run(ctx, records)
			if err != nil {
				errCh <- err
				return
			}
			if report.Failed > 0 {
				errCh <- fmt.Errorf("writer %d: %d records failed", w, report.Failed)
			}
		}()
	}

	for r := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				hits, err := store.Search(ctx, "image", queries[(r+i)%len(queries)], 5)
				if err != nil {
					errCh <- err
					return
				}
				if len(hits) == 0 {
					errCh <- fmt.Errorf("reader %d: empty result", r)
					return
				}
			}
		}()
	}

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if err := store.SaveSnapshot(ctx); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	assert.Equal(t, writers*perRun+1, store.Len())

	// The last snapshot written must load cleanly and carry a consistent
	// subset of the data.
	loaded, err := matcha.LoadFromBlobStore(ctx, blobs, "snapshots/latest")
	require.NoError(t, err)
	t.Cleanup(func() { _ = loaded.Close() })
	assert.GreaterOrEqual(t, loaded.Len(), 1)
	assert.LessOrEqual(t, loaded.Len(), writers*perRun+1)
}
