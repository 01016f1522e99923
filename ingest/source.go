package ingest

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/matchadb/matcha/blobstore"
)

// SliceSource adapts an in-memory record slice to the Source interface.
type SliceSource []Record

func (s SliceSource) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range s {
			if ctx.Err() != nil {
				yield(Record{}, ctx.Err())
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// BlobTextSource streams text blobs under a key prefix as records: each
// blob becomes one record whose join key is the key with the prefix
// stripped and whose body is the text to embed into space. A blob that
// fails to read yields its record with an error and the stream
// continues.
func BlobTextSource(bs blobstore.BlobStore, prefix, space string) Source {
	return &blobTextSource{bs: bs, prefix: prefix, space: space}
}

type blobTextSource struct {
	bs     blobstore.BlobStore
	prefix string
	space  string
}

func (s *blobTextSource) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		keys, err := s.bs.List(ctx, s.prefix)
		if err != nil {
			yield(Record{}, fmt.Errorf("list %q: %w", s.prefix, err))
			return
		}

		for _, key := range keys {
			joinKey := strings.TrimPrefix(key, s.prefix)
			joinKey = strings.TrimPrefix(joinKey, "/")

			data, err := blobstore.ReadAll(ctx, s.bs, key)
			if err != nil {
				if !yield(Record{JoinKey: joinKey}, fmt.Errorf("read %q: %w", key, err)) {
					return
				}
				continue
			}

			rec := Record{
				JoinKey: joinKey,
				Texts:   map[string]string{s.space: string(data)},
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
