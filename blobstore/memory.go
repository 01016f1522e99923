package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory BlobStore for tests and ephemeral snapshots.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory blob store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Open(ctx context.Context, key string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	// Blobs are stored by replacement, never mutated in place, so handing
	// out the stored slice is safe.
	return &memoryBlob{Reader: bytes.NewReader(data)}, nil
}

func (s *MemoryStore) Create(ctx context.Context, key string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &memoryWritableBlob{store: s, key: key}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)

	return keys, nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blobs)
}

type memoryBlob struct {
	*bytes.Reader
}

func (b *memoryBlob) Close() error { return nil }

type memoryWritableBlob struct {
	store *MemoryStore
	key   string

	mu   sync.Mutex
	buf  bytes.Buffer
	done bool
}

func (b *memoryWritableBlob) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return 0, io.ErrClosedPipe
	}

	return b.buf.Write(p)
}

func (b *memoryWritableBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return io.ErrClosedPipe
	}

	b.done = true

	data := make([]byte, b.buf.Len())
	copy(data, b.buf.Bytes())

	b.store.mu.Lock()
	b.store.blobs[b.key] = data
	b.store.mu.Unlock()

	return nil
}

func (b *memoryWritableBlob) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.done = true
	b.buf.Reset()

	return nil
}
