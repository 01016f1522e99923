package minio

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/matchadb/matcha/blobstore"
	"github.com/minio/minio-go/v7"
)

// Store implements blobstore.BlobStore on MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a MinIO-backed blob store. prefix is prepended to all keys
// (e.g. "snapshots/").
func New(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *Store) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, key string) (blobstore.Blob, error) {
	objectKey := s.objectKey(key)

	info, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}

		return nil, err
	}

	return &minioBlob{
		client: s.client,
		bucket: s.bucket,
		key:    objectKey,
		size:   info.Size,
	}, nil
}

// Create starts a streaming upload. The object becomes visible when the
// returned blob's Close commits.
func (s *Store) Create(ctx context.Context, key string) (blobstore.WritableBlob, error) {
	objectKey := s.objectKey(key)
	pr, pw := io.Pipe()

	blob := &minioWritableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, objectKey, pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

// Delete removes a blob. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil
		}

		return err
	}

	return nil
}

// List returns all blob keys with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.objectKey(prefix)

	var keys []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		key := strings.TrimPrefix(obj.Key, s.prefix)
		key = strings.TrimPrefix(key, "/")

		if key != "" {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// minioBlob implements blobstore.Blob via ranged GETs.
type minioBlob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := b.client.GetObject(context.Background(), b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err == nil && int64(n) < int64(len(p)) {
		return n, io.EOF
	}

	return n, err
}

func (b *minioBlob) Close() error {
	return nil
}

// minioWritableBlob streams writes to an in-flight PutObject.
type minioWritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (b *minioWritableBlob) Write(p []byte) (int, error) {
	if b.finished.Load() {
		return 0, io.ErrClosedPipe
	}

	return b.pw.Write(p)
}

func (b *minioWritableBlob) Close() error {
	if !b.finished.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}

	if err := b.pw.Close(); err != nil {
		return err
	}

	return <-b.done
}

func (b *minioWritableBlob) Abort() error {
	if !b.finished.CompareAndSwap(false, true) {
		return nil
	}

	return b.pw.CloseWithError(errors.New("upload aborted"))
}
