// Package vindex implements the per-space exact nearest-neighbor index.
//
// Vectors are stored unit-normalized, so cosine similarity reduces to a
// dot product. The index itself is not synchronized: the store layer
// mutates private clones and publishes them atomically, giving readers
// lock-free access to immutable snapshots.
package vindex

import (
	"container/heap"
	"errors"
	"sort"

	"github.com/matchadb/matcha/internal/math32"
)

// ErrDimension is returned when a vector's length does not match the
// index dimensionality.
var ErrDimension = errors.New("vindex: dimension mismatch")

// Hit is a single search result. Score is cosine similarity in [-1, 1];
// higher means more similar.
type Hit struct {
	ID    uint64
	Score float32
}

// Row is one stored vector, exposed for snapshot serialization.
// Vec is the normalized vector as stored; callers must not mutate it.
type Row struct {
	ID  uint64
	Vec []float32
}

type row struct {
	id  uint64
	seq uint64 // insertion order, drives tie-breaks
	vec []float32
}

// Index holds the vectors of one space.
type Index struct {
	dim     int
	rows    []row
	byID    map[uint64]int
	nextSeq uint64
}

// New creates an empty index for vectors of the given dimensionality.
func New(dim int) *Index {
	return &Index{
		dim:  dim,
		byID: make(map[uint64]int),
	}
}

// Dim returns the index dimensionality.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of stored vectors.
func (x *Index) Len() int { return len(x.rows) }

// Contains reports whether id has a vector in this index.
func (x *Index) Contains(id uint64) bool {
	_, ok := x.byID[id]
	return ok
}

// Vector returns the stored (normalized) vector for id.
// The returned slice is shared; callers must not mutate it.
func (x *Index) Vector(id uint64) ([]float32, bool) {
	pos, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return x.rows[pos].vec, true
}

// Clone returns a copy that can be mutated without affecting the
// receiver. Stored vectors are shared because they are never mutated
// in place; Put always installs a fresh slice.
func (x *Index) Clone() *Index {
	c := &Index{
		dim:     x.dim,
		rows:    make([]row, len(x.rows)),
		byID:    make(map[uint64]int, len(x.byID)),
		nextSeq: x.nextSeq,
	}
	copy(c.rows, x.rows)
	for id, pos := range x.byID {
		c.byID[id] = pos
	}
	return c
}

// Put stores vec under id, replacing any existing vector. The vector
// must already be unit-normalized and is not copied; the caller hands
// over ownership. A replaced row moves to the end of the insertion
// order.
func (x *Index) Put(id uint64, vec []float32) error {
	if len(vec) != x.dim {
		return ErrDimension
	}

	seq := x.nextSeq
	x.nextSeq++

	if pos, ok := x.byID[id]; ok {
		x.rows[pos] = row{id: id, seq: seq, vec: vec}
		return nil
	}

	x.byID[id] = len(x.rows)
	x.rows = append(x.rows, row{id: id, seq: seq, vec: vec})
	return nil
}

// Delete removes id's vector. Returns false if id was not present.
func (x *Index) Delete(id uint64) bool {
	pos, ok := x.byID[id]
	if !ok {
		return false
	}

	last := len(x.rows) - 1
	if pos != last {
		x.rows[pos] = x.rows[last]
		x.byID[x.rows[pos].id] = pos
	}
	x.rows = x.rows[:last]
	delete(x.byID, id)
	return true
}

// Search returns up to k hits ordered by descending similarity to the
// unit-normalized query. Equal scores rank in insertion order. An empty
// index yields no hits and no error.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, ErrDimension
	}
	if len(x.rows) == 0 {
		return nil, nil
	}

	if k > len(x.rows) {
		k = len(x.rows)
	}

	top := make(candidateHeap, 0, k)
	for _, r := range x.rows {
		c := candidate{id: r.id, seq: r.seq, score: math32.Dot(query, r.vec)}

		if len(top) < k {
			heap.Push(&top, c)
			continue
		}
		if top[0].worseThan(c) {
			top[0] = c
			heap.Fix(&top, 0)
		}
	}

	// Pop ascending, fill backwards: best candidate ends up first.
	hits := make([]Hit, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		c := heap.Pop(&top).(candidate)
		hits[i] = Hit{ID: c.id, Score: clampScore(c.score)}
	}
	return hits, nil
}

// Rows returns all stored vectors in insertion order, for snapshots.
func (x *Index) Rows() []Row {
	rows := make([]row, len(x.rows))
	copy(rows, x.rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{ID: r.id, Vec: r.vec}
	}
	return out
}

// clampScore keeps float rounding from pushing cosine similarity
// outside [-1, 1].
func clampScore(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
