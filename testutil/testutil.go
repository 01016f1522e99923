package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/matchadb/matcha/internal/math32"
)

// Neighbor is one exact search result: an item position and its cosine
// similarity to the query, higher is better.
type Neighbor struct {
	ID    uint64
	Score float32
}

// RNG encapsulates a seeded random number generator. It is safe for
// concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorLocked(dimensions)
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses a Gaussian distribution for uniform placement on the sphere, which
// matches how embedding-model outputs distribute after normalization.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)
	for i := range num {
		vectors[i] = r.unitVectorLocked(dimensions)
	}

	return vectors
}

// ClusteredVectors generates vectors clustered around random unit centroids.
// Useful for search quality tests on non-uniform data: real product
// embeddings cluster by category rather than spreading uniformly.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]

		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

func (r *RNG) unitVectorLocked(dimensions int) []float32 {
	vec := make([]float32, dimensions)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		norm = 1
	}

	invNorm := float32(1.0 / math.Sqrt(norm))
	math32.ScaleInPlace(vec, invNorm)
	return vec
}

// BruteForceTopK performs exact cosine search for ground truth. IDs are
// vector positions; results are ordered by descending score, ties by
// ascending ID, matching store insertion order.
func BruteForceTopK(vectors [][]float32, query []float32, k int) []Neighbor {
	q, ok := math32.NormalizeL2Copy(query)
	if !ok {
		return nil
	}

	results := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		nv, ok := math32.NormalizeL2Copy(v)
		if !ok {
			results[i] = Neighbor{ID: uint64(i), Score: float32(math.Inf(-1))}
			continue
		}
		results[i] = Neighbor{ID: uint64(i), Score: math32.Dot(q, nv)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// ComputeRecall computes recall@k by comparing results against ground truth.
func ComputeRecall(groundTruth, got []Neighbor) float64 {
	if len(groundTruth) == 0 || len(got) == 0 {
		if len(groundTruth) == 0 && len(got) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(got), len(groundTruth))

	truthSet := make(map[uint64]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, n := range got {
		if _, ok := truthSet[n.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
