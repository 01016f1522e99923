// Package idalloc assigns store-unique item identifiers.
//
// Identifiers are drawn from a single atomic counter, so concurrent
// batches can never be handed overlapping ranges. Explicitly supplied
// identifiers raise the floor instead of being tracked individually.
package idalloc

import "sync/atomic"

// Allocator hands out monotonically increasing uint64 identifiers
// starting at zero. It is safe for concurrent use.
type Allocator struct {
	next atomic.Uint64
}

// New creates an allocator whose first identifier is 0.
func New() *Allocator {
	return &Allocator{}
}

// NewAt creates an allocator whose first identifier is next.
func NewAt(next uint64) *Allocator {
	a := &Allocator{}
	a.next.Store(next)
	return a
}

// Next allocates a single identifier.
func (a *Allocator) Next() uint64 {
	return a.next.Add(1) - 1
}

// Reserve allocates a contiguous block of n identifiers and returns the
// first one. Reserve(0) allocates nothing and returns the current floor.
func (a *Allocator) Reserve(n int) uint64 {
	return a.next.Add(uint64(n)) - uint64(n)
}

// Observe raises the floor so no future allocation collides with id.
// Used when the caller supplies an explicit identifier or when state is
// restored from a snapshot.
func (a *Allocator) Observe(id uint64) {
	for {
		cur := a.next.Load()
		if id < cur {
			return
		}
		if a.next.CompareAndSwap(cur, id+1) {
			return
		}
	}
}

// Peek returns the identifier the next allocation would produce.
func (a *Allocator) Peek() uint64 {
	return a.next.Load()
}
