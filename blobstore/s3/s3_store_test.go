package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchadb/matcha/blobstore"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)

	prefix := fmt.Sprintf("test-matcha-%d/", time.Now().UnixNano())
	store := New(client, bucket, prefix)

	t.Run("CreateAndRead", func(t *testing.T) {
		key := "test.matcha"
		data := make([]byte, 1024*1024)
		_, _ = rand.Read(data)

		w, err := store.Create(ctx, key)
		require.NoError(t, err)

		n, err := w.Write(data)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		require.NoError(t, w.Close())

		keys, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, keys, key)

		r, err := store.Open(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), r.Size())

		buf := make([]byte, 100)

		n2, err := r.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 100, n2)
		assert.Equal(t, data[:100], buf)

		n3, err := r.ReadAt(buf, 1024)
		require.NoError(t, err)
		assert.Equal(t, 100, n3)
		assert.Equal(t, data[1024:1124], buf)

		require.NoError(t, store.Delete(ctx, key))
		require.NoError(t, r.Close())
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Open(ctx, "nonexistent")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
