package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/matchadb/matcha/blobstore"
)

const (
	defaultPartSize    = 8 * 1024 * 1024
	defaultConcurrency = 5
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Option configures a Store.
type Option func(*Store)

// WithUploadPartSize sets the multipart upload part size in bytes.
func WithUploadPartSize(size int64) Option {
	return func(s *Store) {
		s.partSize = size
	}
}

// WithUploadConcurrency sets the number of concurrent part uploads.
func WithUploadConcurrency(n int) Option {
	return func(s *Store) {
		s.concurrency = n
	}
}

// Store implements blobstore.BlobStore on Amazon S3.
type Store struct {
	client      Client
	bucket      string
	prefix      string
	partSize    int64
	concurrency int
	uploader    *manager.Uploader
}

// New creates an S3-backed blob store. prefix is prepended to all keys
// (e.g. "snapshots/").
func New(client Client, bucket, prefix string, opts ...Option) *Store {
	s := &Store{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		partSize:    defaultPartSize,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = s.partSize
		u.Concurrency = s.concurrency
	})

	return s
}

func (s *Store) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, key string) (blobstore.Blob, error) {
	objectKey := s.objectKey(key)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, blobstore.ErrNotFound
		}

		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}

		return nil, err
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    objectKey,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create starts a streaming upload through the s3 manager. The object
// becomes visible when the returned blob's Close commits.
func (s *Store) Create(ctx context.Context, key string) (blobstore.WritableBlob, error) {
	objectKey := s.objectKey(key)
	pr, pw := io.Pipe()

	blob := &s3WritableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

// Delete removes a blob. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})

	return err
}

// List returns all blob keys with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.objectKey(prefix)

	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)

			if s.prefix != "" {
				key = trimPrefix(key, s.prefix)
			}

			if key != "" {
				keys = append(keys, key)
			}
		}
	}

	sort.Strings(keys)

	return keys, nil
}

func trimPrefix(key, prefix string) string {
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return key
	}

	key = key[len(prefix):]
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}

	return key
}

// s3Blob implements blobstore.Blob via ranged GETs.
type s3Blob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) Close() error {
	return nil
}

func (b *s3Blob) Size() int64 {
	return b.size
}

func (b *s3Blob) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	resp, err := b.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.ReadFull(resp.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		if off+int64(n) == b.size {
			return n, nil
		}

		return n, io.EOF
	}

	expected := end - off + 1
	if int64(n) == expected && int64(n) < int64(len(p)) {
		return n, io.EOF
	}

	return n, err
}

// s3WritableBlob streams writes to an in-flight manager upload.
type s3WritableBlob struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (b *s3WritableBlob) Write(p []byte) (int, error) {
	if b.closed.Load() {
		return 0, io.ErrClosedPipe
	}

	return b.pw.Write(p)
}

func (b *s3WritableBlob) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}

	if err := b.pw.Close(); err != nil {
		return err
	}

	return <-b.done
}

func (b *s3WritableBlob) Abort() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	return b.pw.CloseWithError(errors.New("upload aborted"))
}
