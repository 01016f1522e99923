package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("PutResolve", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Put(ctx, Product{
			ID:       "sku-1",
			Name:     "Green Tea Whisk",
			Category: "kitchen",
			Extra:    map[string]string{"brand": "acme"},
		}))

		p, err := m.Resolve(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, "Green Tea Whisk", p.Name)
		assert.Equal(t, "acme", p.Extra["brand"])

		_, err = m.Resolve(ctx, "sku-404")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Put(ctx, Product{ID: "sku-1", Name: "old"}))
		require.NoError(t, m.Put(ctx, Product{ID: "sku-1", Name: "new"}))

		p, err := m.Resolve(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, "new", p.Name)

		n, err := m.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("EmptyIDRejected", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		assert.Error(t, m.Put(ctx, Product{Name: "nameless"}))
		assert.Error(t, m.PutBatch(ctx, []Product{{ID: "ok"}, {}}))

		// A rejected batch writes nothing.
		n, err := m.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.Put(ctx, Product{ID: "sku-1"}))
		require.NoError(t, m.Delete(ctx, "sku-1"))
		require.NoError(t, m.Delete(ctx, "sku-1"))

		_, err := m.Resolve(ctx, "sku-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListSortedByID", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		require.NoError(t, m.PutBatch(ctx, []Product{
			{ID: "sku-3"}, {ID: "sku-1"}, {ID: "sku-2"},
		}))

		var ids []string
		for p, err := range m.List(ctx) {
			require.NoError(t, err)
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"sku-1", "sku-2", "sku-3"}, ids)
	})

	t.Run("StoredProductsAreIsolated", func(t *testing.T) {
		m := NewMemory()
		defer m.Close()

		extra := map[string]string{"brand": "acme"}
		require.NoError(t, m.Put(ctx, Product{ID: "sku-1", Extra: extra}))
		extra["brand"] = "mutated"

		p, err := m.Resolve(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, "acme", p.Extra["brand"])

		p.Extra["brand"] = "tampered"
		again, err := m.Resolve(ctx, "sku-1")
		require.NoError(t, err)
		assert.Equal(t, "acme", again.Extra["brand"])
	})
}

func TestResolverFunc(t *testing.T) {
	ctx := context.Background()

	r := ResolverFunc(func(_ context.Context, key string) (Product, error) {
		if key != "sku-1" {
			return Product{}, ErrNotFound
		}
		return Product{ID: key, Name: "Green Tea Whisk"}, nil
	})

	p, err := r.Resolve(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, "Green Tea Whisk", p.Name)

	_, err = r.Resolve(ctx, "sku-2")
	assert.ErrorIs(t, err, ErrNotFound)
}
