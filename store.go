package matcha

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/internal/idalloc"
	"github.com/matchadb/matcha/internal/idset"
	"github.com/matchadb/matcha/internal/math32"
	"github.com/matchadb/matcha/internal/vindex"
)

// DefaultChunkSize is the number of items applied per copy-on-write step
// during batched mutations. Chunking bounds how long a single step holds
// on to a state clone; it never changes per-item semantics.
const DefaultChunkSize = 32

// storeState is one immutable version of the store contents. Readers
// load the current version through an atomic pointer and use it without
// locking; writers build the next version from a clone and publish it
// with a single pointer swap.
type storeState struct {
	specs    map[string]SpaceSpec
	indexes  map[string]*vindex.Index
	payloads map[ItemID]Payload
	live     *idset.Set
}

func newStoreState() *storeState {
	return &storeState{
		specs:    make(map[string]SpaceSpec),
		indexes:  make(map[string]*vindex.Index),
		payloads: make(map[ItemID]Payload),
		live:     idset.New(),
	}
}

// clone returns a copy the caller may mutate freely. Payload values are
// copied shallowly: once stored they are never mutated, only replaced.
func (st *storeState) clone() *storeState {
	c := &storeState{
		specs:    make(map[string]SpaceSpec, len(st.specs)),
		indexes:  make(map[string]*vindex.Index, len(st.indexes)),
		payloads: make(map[ItemID]Payload, len(st.payloads)),
		live:     st.live.Clone(),
	}
	for name, spec := range st.specs {
		c.specs[name] = spec
	}
	for name, idx := range st.indexes {
		c.indexes[name] = idx.Clone()
	}
	for id, p := range st.payloads {
		c.payloads[id] = p
	}
	return c
}

// remove unlinks id from every structure. st must be a private clone.
func (st *storeState) remove(id ItemID) {
	for _, idx := range st.indexes {
		idx.Delete(uint64(id))
	}
	delete(st.payloads, id)
	st.live.Remove(uint64(id))
}

// Store is an in-memory vector store with named, fixed-dimension vector
// spaces, batched upserts and cosine similarity search. All methods are
// safe for concurrent use; reads never block behind writes.
//
// Construct a Store with New, or with one of the LoadFrom constructors
// to start from a snapshot.
type Store struct {
	opts options

	// state is the currently published version. Mutations clone it
	// under writeMu and swap the pointer.
	state   atomic.Pointer[storeState]
	writeMu sync.Mutex

	alloc *idalloc.Allocator

	// ready is set once initial state is in place. Stores without a
	// configured snapshot store are born ready.
	ready   atomic.Bool
	loadGrp singleflight.Group

	closed atomic.Bool
}

func newStore(specs []SpaceSpec, opts options) *Store {
	s := &Store{
		opts:  opts,
		alloc: idalloc.New(),
	}
	st := newStoreState()
	for _, spec := range specs {
		st.specs[spec.Name] = spec
		st.indexes[spec.Name] = vindex.New(spec.Dimension)
	}
	s.state.Store(st)
	if opts.snapshotStore == nil {
		s.ready.Store(true)
	}
	return s
}

// DeclareSpace registers a named vector space with a fixed
// dimensionality. Declaring an existing space with identical parameters
// is a no-op; conflicting parameters return a SpaceMismatchError and
// leave the existing declaration untouched.
func (s *Store) DeclareSpace(ctx context.Context, name string, dimension int) error {
	if s.closed.Load() {
		return ErrClosed
	}

	err := func() error {
		if err := s.ensureReady(ctx); err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("space name must not be empty: %w", ErrContractViolation)
		}
		if dimension < 1 {
			return fmt.Errorf("space %q: dimension must be >= 1, got %d: %w", name, dimension, ErrContractViolation)
		}

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		requested := SpaceSpec{Name: name, Dimension: dimension, Metric: MetricCosine}
		cur := s.state.Load()
		if existing, ok := cur.specs[name]; ok {
			if existing == requested {
				return nil
			}
			return &SpaceMismatchError{Name: name, Existing: existing, Requested: requested}
		}

		next := cur.clone()
		next.specs[name] = requested
		next.indexes[name] = vindex.New(dimension)
		s.state.Store(next)
		return nil
	}()

	s.opts.logger.LogDeclare(ctx, name, dimension, err)
	return err
}

// Spaces returns the declared space specs, sorted by name.
func (s *Store) Spaces() []SpaceSpec {
	st := s.state.Load()
	specs := make([]SpaceSpec, 0, len(st.specs))
	for _, spec := range st.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Space returns the spec of the named space and whether it is declared.
func (s *Store) Space(name string) (SpaceSpec, bool) {
	spec, ok := s.state.Load().specs[name]
	return spec, ok
}

// EnsureReady loads the store's initial state from the snapshot store
// configured with WithSnapshotStore. Every operation that touches state
// calls it implicitly; calling it explicitly lets applications fail
// fast and control retry timing. Concurrent callers share a single load
// attempt. A failed load leaves the store unready and the next call
// retries; a missing snapshot is a fresh start, not an error.
func (s *Store) EnsureReady(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.ensureReady(ctx)
}

func (s *Store) ensureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	_, err, _ := s.loadGrp.Do("load", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		if err := s.loadInitial(ctx); err != nil {
			return nil, err
		}
		s.ready.Store(true)
		return nil, nil
	})
	return err
}

// loadInitial reads the configured snapshot and merges builder-declared
// spaces into it.
func (s *Store) loadInitial(ctx context.Context) error {
	start := time.Now()
	key := s.opts.snapshotKey

	data, err := blobstore.ReadAll(ctx, s.opts.snapshotStore, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.opts.logger.DebugContext(ctx, "no snapshot found, starting empty", "key", key)
			return nil
		}
		err = &UnavailableError{Op: "snapshot load", Err: err}
		s.opts.metricsCollector.RecordSnapshotLoad(time.Since(start), err)
		s.opts.logger.LogSnapshotLoad(ctx, key, 0, err)
		return err
	}

	loaded, nextID, err := decodeSnapshot(bytes.NewReader(data))
	if err == nil {
		err = s.install(loaded, nextID)
	}
	s.opts.metricsCollector.RecordSnapshotLoad(time.Since(start), err)
	if err != nil {
		s.opts.logger.LogSnapshotLoad(ctx, key, 0, err)
		return err
	}
	s.opts.logger.LogSnapshotLoad(ctx, key, loaded.live.Len(), nil)
	return nil
}

// install publishes a loaded state after merging in the spaces declared
// at build time. Builder declarations must agree with the snapshot.
func (s *Store) install(loaded *storeState, nextID uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.state.Load()
	for name, spec := range cur.specs {
		existing, ok := loaded.specs[name]
		if !ok {
			loaded.specs[name] = spec
			loaded.indexes[name] = vindex.New(spec.Dimension)
			continue
		}
		if existing != spec {
			return &SpaceMismatchError{Name: name, Existing: existing, Requested: spec}
		}
	}

	if nextID > 0 {
		s.alloc.Observe(nextID - 1)
	}
	if maxID, ok := loaded.live.Max(); ok {
		s.alloc.Observe(maxID)
	}
	s.state.Store(loaded)
	return nil
}

// Upsert stores a single item. Equivalent to a one-item UpsertBatch.
func (s *Store) Upsert(ctx context.Context, item UpsertItem) (ItemID, error) {
	res, err := s.UpsertBatch(ctx, []UpsertItem{item})
	if err != nil {
		return 0, err
	}
	r := res.Results[0]
	return r.ID, r.Err
}

// UpsertBatch stores a batch of items, replacing all vectors and the
// payload of any item whose ID is already present. Validation is per
// item: a rejected item reports its error in the result and leaves the
// store unchanged while the rest of the batch proceeds. Results align
// 1:1 with items.
//
// Large batches are applied in chunks of WithChunkSize items, each
// published atomically; concurrent readers may observe a prefix of the
// batch. A canceled context stops between chunks: applied chunks stay
// visible, remaining items are marked with the context error, and the
// call returns the context error alongside the partial result.
func (s *Store) UpsertBatch(ctx context.Context, items []UpsertItem) (*UpsertResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	res := &UpsertResult{Results: make([]ItemResult, len(items))}
	if len(items) == 0 {
		return res, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var callErr error
	for lo := 0; lo < len(items); lo += s.opts.chunkSize {
		if err := ctx.Err(); err != nil {
			for i := lo; i < len(items); i++ {
				res.Results[i].Err = err
			}
			callErr = err
			break
		}
		hi := min(lo+s.opts.chunkSize, len(items))

		next := s.state.Load().clone()
		for i := lo; i < hi; i++ {
			id, err := s.applyUpsert(next, items[i])
			res.Results[i] = ItemResult{ID: id, Err: translateError(err)}
		}
		s.state.Store(next)
	}

	duration := time.Since(start)
	s.opts.metricsCollector.RecordUpsert(len(items), res.Failed(), duration)
	s.opts.logger.LogUpsertBatch(ctx, len(items), res.Failed(), duration, callErr)
	return res, callErr
}

// applyUpsert validates one item against st and, if it passes, writes
// it. st is a private clone, safe to mutate. Returns the effective ID.
func (s *Store) applyUpsert(st *storeState, item UpsertItem) (ItemID, error) {
	if len(item.Vectors) == 0 {
		return 0, ErrNoVectors
	}

	normalized := make(map[string][]float32, len(item.Vectors))
	for space, vec := range item.Vectors {
		spec, ok := st.specs[space]
		if !ok {
			return 0, &UnknownSpaceError{Space: space}
		}
		if len(vec) != spec.Dimension {
			return 0, &DimensionMismatchError{Space: space, Expected: spec.Dimension, Actual: len(vec)}
		}
		unit, ok := math32.NormalizeL2Copy(vec)
		if !ok {
			return 0, &InvalidVectorError{Space: space, Reason: "zero norm"}
		}
		normalized[space] = unit
	}

	var id ItemID
	if item.ID != nil {
		id = *item.ID
		s.alloc.Observe(uint64(id))
	} else {
		id = ItemID(s.alloc.Next())
	}

	// Full replace: vectors in spaces the new item does not cover are
	// removed.
	if st.live.Contains(uint64(id)) {
		for space, idx := range st.indexes {
			if _, ok := normalized[space]; !ok {
				idx.Delete(uint64(id))
			}
		}
	}
	for space, unit := range normalized {
		if err := st.indexes[space].Put(uint64(id), unit); err != nil {
			return id, err
		}
	}
	st.payloads[id] = item.Payload.clone()
	st.live.Add(uint64(id))
	return id, nil
}

// Get returns the stored item with the given ID. Vectors come back as
// stored, unit-normalized; the returned item shares no memory with the
// store.
func (s *Store) Get(ctx context.Context, id ItemID) (Item, error) {
	if s.closed.Load() {
		return Item{}, ErrClosed
	}
	if err := s.ensureReady(ctx); err != nil {
		return Item{}, err
	}

	st := s.state.Load()
	if !st.live.Contains(uint64(id)) {
		return Item{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}

	item := Item{
		ID:      id,
		Vectors: make(map[string][]float32),
		Payload: st.payloads[id].clone(),
	}
	for space, idx := range st.indexes {
		vec, ok := idx.Vector(uint64(id))
		if !ok {
			continue
		}
		out := make([]float32, len(vec))
		copy(out, vec)
		item.Vectors[space] = out
	}
	return item, nil
}

// Delete removes an item and all its vectors. Deleting an absent item
// returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id ItemID) error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	err := func() error {
		if err := s.ensureReady(ctx); err != nil {
			return err
		}

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		cur := s.state.Load()
		if !cur.live.Contains(uint64(id)) {
			return fmt.Errorf("item %d: %w", id, ErrNotFound)
		}
		next := cur.clone()
		next.remove(id)
		s.state.Store(next)
		return nil
	}()

	duration := time.Since(start)
	failed := 0
	if err != nil {
		failed = 1
	}
	s.opts.metricsCollector.RecordDelete(1, failed, duration)
	s.opts.logger.LogDelete(ctx, uint64(id), err)
	return err
}

// DeleteBatch removes a batch of items with per-item outcomes: present
// IDs are removed, absent IDs report ErrNotFound. Applied in chunks
// like UpsertBatch, with the same context-cancellation behavior.
func (s *Store) DeleteBatch(ctx context.Context, ids []ItemID) (*DeleteResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	res := &DeleteResult{Results: make([]ItemResult, len(ids))}
	if len(ids) == 0 {
		return res, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var callErr error
	failed := 0
	for lo := 0; lo < len(ids); lo += s.opts.chunkSize {
		if err := ctx.Err(); err != nil {
			for i := lo; i < len(ids); i++ {
				res.Results[i] = ItemResult{ID: ids[i], Err: err}
			}
			failed += len(ids) - lo
			callErr = err
			break
		}
		hi := min(lo+s.opts.chunkSize, len(ids))

		next := s.state.Load().clone()
		for i := lo; i < hi; i++ {
			id := ids[i]
			if !next.live.Contains(uint64(id)) {
				res.Results[i] = ItemResult{ID: id, Err: fmt.Errorf("item %d: %w", id, ErrNotFound)}
				failed++
				continue
			}
			next.remove(id)
			res.Results[i] = ItemResult{ID: id}
		}
		s.state.Store(next)
	}

	duration := time.Since(start)
	s.opts.metricsCollector.RecordDelete(len(ids), failed, duration)
	s.opts.logger.LogDeleteBatch(ctx, len(ids), failed, duration, callErr)
	return res, callErr
}

// Len returns the number of live items.
func (s *Store) Len() int {
	return s.state.Load().live.Len()
}

// SpaceLen returns the number of items that have a vector in the named
// space.
func (s *Store) SpaceLen(name string) (int, error) {
	idx, ok := s.state.Load().indexes[name]
	if !ok {
		return 0, &UnknownSpaceError{Space: name}
	}
	return idx.Len(), nil
}

// Stats returns a point-in-time view of store contents.
func (s *Store) Stats() StoreStats {
	st := s.state.Load()
	stats := StoreStats{
		Items:  st.live.Len(),
		NextID: ItemID(s.alloc.Peek()),
		Spaces: make([]SpaceStats, 0, len(st.specs)),
	}

	names := make([]string, 0, len(st.specs))
	for name := range st.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats.Spaces = append(stats.Spaces, SpaceStats{
			Spec:  st.specs[name],
			Items: st.indexes[name].Len(),
		})
	}
	return stats
}

// Close marks the store closed; every subsequent operation returns
// ErrClosed. Close never writes a snapshot, call SaveSnapshot first if
// the state should survive. Safe to call multiple times and on a nil
// store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	s.opts.logger.Debug("store closed")
	return nil
}
