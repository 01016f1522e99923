package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores opaque blobs under string keys.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens an existing blob for reading. Missing keys return ErrNotFound.
	Open(ctx context.Context, key string) (Blob, error)

	// Create starts a new blob. Data written through the returned
	// WritableBlob replaces any existing blob under key once Close commits.
	Create(ctx context.Context, key string) (WritableBlob, error)

	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob under construction. Nothing is visible under the
// blob's key until Close returns nil.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Abort discards everything written so far. Abort after Close is a no-op.
	Abort() error
}

// WriteAll writes data as a single blob under key.
func WriteAll(ctx context.Context, bs BlobStore, key string, data []byte) error {
	w, err := bs.Create(ctx, key)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return err
	}

	return w.Close()
}

// ReadAll reads a whole blob into memory.
func ReadAll(ctx context.Context, bs BlobStore, key string) ([]byte, error) {
	b, err := bs.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	data := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), data); err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}

	return data, nil
}
