// Package catalog stores the product records that vector search hits are
// resolved against.
//
// The matcha store keeps only a JoinKey per item; the catalog owns the
// product data behind those keys. Resolver is the read side the match
// package consumes, Writer the ingestion side, and Store the full
// lifecycle. The built-in implementations cover tests (Memory) and a
// persistent single-host catalog (the badgerstore subpackage).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// ErrNotFound is returned by Resolve for keys without a product. The
// match package treats it as a soft miss, not a failure.
var ErrNotFound = errors.New("catalog: product not found")

// Product is one catalog entry. ID doubles as the resolve key and must
// be non-empty.
type Product struct {
	ID       string            `json:"id" msgpack:"id"`
	Name     string            `json:"name" msgpack:"name"`
	Category string            `json:"category,omitempty" msgpack:"category,omitempty"`
	ImageRef string            `json:"image_ref,omitempty" msgpack:"image_ref,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

func (p Product) validate() error {
	if p.ID == "" {
		return fmt.Errorf("catalog: product has no ID")
	}
	return nil
}

// clone returns a copy that shares no mutable state with p.
func (p Product) clone() Product {
	out := p
	if p.Extra != nil {
		out.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Resolver is the read side of a catalog: key in, product out.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// Resolve returns the product stored under key, or ErrNotFound.
	Resolve(ctx context.Context, key string) (Product, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, key string) (Product, error)

func (f ResolverFunc) Resolve(ctx context.Context, key string) (Product, error) {
	return f(ctx, key)
}

// Writer is the ingestion side of a catalog. Put is a full replace of
// whatever was stored under the product's ID.
type Writer interface {
	Put(ctx context.Context, p Product) error
	PutBatch(ctx context.Context, ps []Product) error
}

// Store is a complete catalog backend.
type Store interface {
	Resolver
	Writer

	// Delete removes a product. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// List iterates all products in ascending ID order.
	List(ctx context.Context) iter.Seq2[Product, error]

	// Len reports the number of stored products.
	Len(ctx context.Context) (int, error)

	Close() error
}
