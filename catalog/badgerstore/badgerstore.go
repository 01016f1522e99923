// Package badgerstore persists a product catalog in BadgerDB.
//
// Products are codec-encoded (msgpack by default) under "prod:<id>"
// keys, so listing is a single prefix scan in ID order.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/matchadb/matcha/catalog"
	"github.com/matchadb/matcha/codec"
)

const keyPrefix = "prod:"

// Store is a catalog.Store backed by a BadgerDB instance it owns.
type Store struct {
	db    *badger.DB
	codec codec.Codec
}

var _ catalog.Store = (*Store)(nil)

type options struct {
	inMemory bool
	codec    codec.Codec
	logger   badger.Logger
}

// Option configures New.
type Option func(*options)

// WithInMemory runs Badger without disk persistence. The path passed to
// New is ignored. Meant for tests that want the real engine.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithCodec overrides the record encoding. Defaults to msgpack; reading
// a catalog written with a different codec is undefined.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger routes Badger's own logging through a slog.Logger.
// By default Badger is silenced.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = slogAdapter{l} }
}

// New opens (or creates) a catalog at path.
func New(path string, optFns ...Option) (*Store, error) {
	o := options{codec: codec.Msgpack{}, logger: nopLogger{}}
	for _, fn := range optFns {
		fn(&o)
	}
	if !o.inMemory && path == "" {
		return nil, fmt.Errorf("badgerstore: path is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(path).WithLogger(o.logger)
	if o.inMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(o.logger)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", path, err)
	}
	return &Store{db: db, codec: o.codec}, nil
}

func key(id string) []byte {
	return append([]byte(keyPrefix), id...)
}

func (s *Store) Resolve(_ context.Context, id string) (catalog.Product, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("badgerstore: resolve %q: %w", id, err)
	}

	var p catalog.Product
	if err := s.codec.Unmarshal(data, &p); err != nil {
		return catalog.Product{}, fmt.Errorf("badgerstore: decode %q: %w", id, err)
	}
	return p, nil
}

func (s *Store) Put(_ context.Context, p catalog.Product) error {
	data, err := s.encode(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(p.ID), data)
	})
}

func (s *Store) PutBatch(_ context.Context, ps []catalog.Product) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range ps {
		data, err := s.encode(p)
		if err != nil {
			return err
		}
		if err := wb.Set(key(p.ID), data); err != nil {
			return fmt.Errorf("badgerstore: batch put %q: %w", p.ID, err)
		}
	}
	return wb.Flush()
}

func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *Store) List(_ context.Context) iter.Seq2[catalog.Product, error] {
	prefix := []byte(keyPrefix)

	return func(yield func(catalog.Product, error) bool) {
		err := s.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				data, err := it.Item().ValueCopy(nil)
				if err != nil {
					if !yield(catalog.Product{}, err) {
						return nil
					}
					continue
				}

				var p catalog.Product
				if err := s.codec.Unmarshal(data, &p); err != nil {
					if !yield(catalog.Product{}, fmt.Errorf("badgerstore: decode %q: %w", it.Item().Key(), err)) {
						return nil
					}
					continue
				}
				if !yield(p, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(catalog.Product{}, err)
		}
	}
}

func (s *Store) Len(_ context.Context) (int, error) {
	prefix := []byte(keyPrefix)
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) encode(p catalog.Product) ([]byte, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("badgerstore: product has no ID")
	}
	data, err := s.codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: encode %q: %w", p.ID, err)
	}
	return data, nil
}

// slogAdapter exposes a slog.Logger as a badger.Logger. Badger's info
// and debug chatter is dropped.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...any)   { a.l.Error(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Warningf(f string, v ...any) { a.l.Warn(fmt.Sprintf(f, v...)) }
func (slogAdapter) Infof(string, ...any)          {}
func (slogAdapter) Debugf(string, ...any)         {}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...any)   {}
func (nopLogger) Warningf(string, ...any) {}
func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Debugf(string, ...any)   {}
