// Package idset tracks live item identifiers as a compressed bitmap.
// It wraps the 64-bit Roaring implementation.
package idset

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a mutable set of uint64 identifiers.
// It is not safe for concurrent use; callers publish immutable snapshots.
type Set struct {
	rb *roaring64.Bitmap
}

// New creates an empty set.
func New() *Set {
	return &Set{rb: roaring64.NewBitmap()}
}

// Add inserts id into the set.
func (s *Set) Add(id uint64) {
	s.rb.Add(id)
}

// Remove deletes id from the set.
func (s *Set) Remove(id uint64) {
	s.rb.Remove(id)
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id uint64) bool {
	return s.rb.Contains(id)
}

// Len returns the number of identifiers in the set.
func (s *Set) Len() int {
	return int(s.rb.GetCardinality())
}

// IsEmpty reports whether the set holds no identifiers.
func (s *Set) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// Max returns the largest identifier in the set.
// The second return value is false when the set is empty.
func (s *Set) Max() (uint64, bool) {
	if s.rb.IsEmpty() {
		return 0, false
	}
	return s.rb.Maximum(), true
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	return &Set{rb: s.rb.Clone()}
}

// All iterates the identifiers in ascending order.
func (s *Set) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// MarshalBinary encodes the set in the portable Roaring format.
func (s *Set) MarshalBinary() ([]byte, error) {
	return s.rb.MarshalBinary()
}

// UnmarshalBinary decodes a set previously encoded with MarshalBinary.
func (s *Set) UnmarshalBinary(data []byte) error {
	rb := roaring64.NewBitmap()
	if err := rb.UnmarshalBinary(data); err != nil {
		return err
	}
	s.rb = rb
	return nil
}
