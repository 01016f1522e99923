// Package blobstore abstracts where snapshots and other opaque blobs live.
//
// A BlobStore reads and writes blobs under string keys. The built-in
// implementations cover tests (MemoryStore), a single host (LocalStore) and
// object storage (the minio and s3 subpackages). Implementations must be
// safe for concurrent use.
//
// Writes are atomic at blob granularity: data written through a
// WritableBlob becomes visible under its key only when Close returns nil,
// and Abort discards a partially written blob.
//
// # Custom Implementations
//
// Implement the BlobStore interface to plug in another backend:
//
//	type BlobStore interface {
//	    Open(ctx, key) (Blob, error)           // read, ErrNotFound on miss
//	    Create(ctx, key) (WritableBlob, error) // write, committed on Close
//	    Delete(ctx, key) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
