package catalog

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// CacheStats is a point-in-time snapshot of cache effectiveness counters.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// CachedResolver wraps a Resolver with a fixed-capacity LRU cache of
// resolved products. It is safe for concurrent use.
//
// Only successful resolutions are cached; ErrNotFound passes through so
// that products added to the backing store later become visible. Writes
// that bypass this resolver require an explicit Invalidate.
type CachedResolver struct {
	mu        sync.Mutex
	inner     Resolver
	capacity  int
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key     string
	product Product
}

// NewCachedResolver creates a CachedResolver holding at most capacity
// products. It panics if inner is nil or capacity is not positive.
func NewCachedResolver(inner Resolver, capacity int) *CachedResolver {
	if inner == nil {
		panic("catalog: inner resolver is nil")
	}
	if capacity < 1 {
		panic("catalog: cache capacity must be positive")
	}
	return &CachedResolver{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Resolve returns the cached product for key, falling back to the inner
// resolver on a miss. Concurrent misses for the same key may each hit the
// inner resolver; the last result wins the cache slot.
func (c *CachedResolver) Resolve(ctx context.Context, key string) (Product, error) {
	c.mu.Lock()
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		p := ent.Value.(*cacheEntry).product.clone()
		c.mu.Unlock()
		c.hits.Add(1)
		return p, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	p, err := c.inner.Resolve(ctx, key)
	if err != nil {
		return Product{}, err
	}

	c.admit(key, p.clone())
	return p, nil
}

// Invalidate drops key from the cache. Dropping an absent key is a no-op.
func (c *CachedResolver) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.Remove(ent)
		delete(c.items, key)
	}
}

// Len returns the number of cached products.
func (c *CachedResolver) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counts since construction.
func (c *CachedResolver) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *CachedResolver) admit(key string, p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry).product = p
		return
	}

	ent := c.evictList.PushFront(&cacheEntry{key: key, product: p})
	c.items[key] = ent

	for len(c.items) > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}
