package matcha

import (
	"fmt"
	"sort"
)

// ItemID is the stable integer identifier of a stored item.
// Store-assigned IDs are dense and start at zero.
type ItemID uint64

// ID returns a pointer to id, for the optional UpsertItem.ID field.
func ID(id ItemID) *ItemID { return &id }

// Metric identifies the similarity metric of a vector space. The zero
// value is cosine, the only metric the store currently implements; the
// type exists so the snapshot format and API stay stable if more
// metrics are added.
type Metric uint8

const (
	// MetricCosine scores by cosine similarity in [-1, 1], higher is
	// more similar. Vectors are L2-normalized on write.
	MetricCosine Metric = iota
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// SpaceSpec declares a named vector space: a fixed dimensionality and a
// fixed similarity metric. Immutable once declared.
type SpaceSpec struct {
	Name      string `json:"name" msgpack:"name"`
	Dimension int    `json:"dimension" msgpack:"dimension"`
	Metric    Metric `json:"metric" msgpack:"metric"`
}

// Payload is the opaque per-item metadata stored alongside vectors.
//
// JoinKey is the reference key used to resolve the item against an
// external catalog; an empty JoinKey means the item is not resolvable
// (such hits are skipped during matching, by design). Extra carries
// free-form scalar attributes.
type Payload struct {
	JoinKey string            `json:"join_key" msgpack:"join_key"`
	Extra   map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

// clone deep-copies the payload so store state never aliases caller maps.
func (p Payload) clone() Payload {
	c := Payload{JoinKey: p.JoinKey}
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// UpsertItem is one item of a batched upsert. Vectors maps space name
// to the dense vector for that space; an item may cover any non-empty
// subset of declared spaces. Leave ID nil to have the store assign one.
type UpsertItem struct {
	ID      *ItemID
	Vectors map[string][]float32
	Payload Payload
}

// Item is the read view of a stored item. Vectors are returned as
// stored, unit-normalized.
type Item struct {
	ID      ItemID
	Vectors map[string][]float32
	Payload Payload
}

// Spaces returns the names of the spaces this item has vectors in,
// sorted for stable output.
func (it Item) Spaces() []string {
	names := make([]string, 0, len(it.Vectors))
	for name := range it.Vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchHit is a single raw search result: item identifier, cosine
// similarity score, and the payload snapshot consistent with the
// searched state. Ephemeral; never persisted.
type SearchHit struct {
	ID      ItemID
	Score   float32
	Payload Payload
}

// ItemResult reports the outcome of one item in a batched mutation.
// Err is nil on success and carries the per-item rejection reason
// otherwise; rejected items leave the store unchanged.
type ItemResult struct {
	ID  ItemID
	Err error
}

// UpsertResult reports per-item outcomes of an UpsertBatch call,
// aligned 1:1 with the input slice.
type UpsertResult struct {
	Results []ItemResult
}

// IDs returns the assigned identifiers of successfully stored items,
// in input order.
func (r *UpsertResult) IDs() []ItemID {
	ids := make([]ItemID, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Err == nil {
			ids = append(ids, res.ID)
		}
	}
	return ids
}

// Stored returns the number of items stored.
func (r *UpsertResult) Stored() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of items rejected.
func (r *UpsertResult) Failed() int {
	return len(r.Results) - r.Stored()
}

// FirstErr returns the first per-item error, or nil if every item was
// stored.
func (r *UpsertResult) FirstErr() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// DeleteResult reports per-item outcomes of a DeleteBatch call.
type DeleteResult struct {
	Results []ItemResult
}

// Deleted returns the number of items removed.
func (r *DeleteResult) Deleted() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// SpaceStats describes one space in a StoreStats snapshot.
type SpaceStats struct {
	Spec  SpaceSpec
	Items int
}

// StoreStats is a point-in-time view of store contents.
type StoreStats struct {
	Items  int
	NextID ItemID
	Spaces []SpaceStats
}
