package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LocalStore stores blobs as files under a root directory. Keys may contain
// forward slashes, which map to subdirectories.
type LocalStore struct {
	dir string
}

// NewLocal creates a LocalStore rooted at dir, creating it if needed.
func NewLocal(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *LocalStore) Open(ctx context.Context, key string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &localBlob{File: f, size: info.Size()}, nil
}

// Create writes to a temp file next to the destination and renames it into
// place on Close, so readers never observe a partially written blob.
func (s *LocalStore) Create(ctx context.Context, key string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := s.path(key)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return nil, err
	}

	return &localWritableBlob{f: tmp, dst: dst}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}

		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)

	return keys, nil
}

type localBlob struct {
	*os.File
	size int64
}

func (b *localBlob) Size() int64 { return b.size }

type localWritableBlob struct {
	f   *os.File
	dst string

	mu   sync.Mutex
	done bool
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return 0, io.ErrClosedPipe
	}

	return b.f.Write(p)
}

func (b *localWritableBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return io.ErrClosedPipe
	}

	b.done = true

	if err := b.f.Sync(); err != nil {
		_ = b.f.Close()
		_ = os.Remove(b.f.Name())

		return err
	}

	if err := b.f.Close(); err != nil {
		_ = os.Remove(b.f.Name())
		return err
	}

	return os.Rename(b.f.Name(), b.dst)
}

func (b *localWritableBlob) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return nil
	}

	b.done = true

	_ = b.f.Close()

	return os.Remove(b.f.Name())
}
