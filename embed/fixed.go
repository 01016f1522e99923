package embed

import (
	"context"
	"hash/fnv"

	"github.com/matchadb/matcha/internal/math32"
)

// Fixed is a deterministic embedder for tests: each text maps to a
// hash-seeded unit vector, so equal texts always embed identically and
// distinct texts almost surely differ. It never does I/O.
type Fixed struct {
	dim int
}

var _ Embedder = (*Fixed)(nil)

// NewFixed creates a deterministic embedder producing vectors of the
// given dimension. Panics if dim < 1.
func NewFixed(dim int) *Fixed {
	if dim < 1 {
		panic("embed: Fixed dimension must be >= 1")
	}
	return &Fixed{dim: dim}
}

func (f *Fixed) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, f.dim)
	for i := range vec {
		state = splitmix64(state)
		// Top 24 bits, mapped to [-1, 1).
		vec[i] = float32(int32(state>>40)-(1<<23)) / (1 << 23)
	}
	if !math32.NormalizeL2InPlace(vec) {
		vec[0] = 1
	}
	return vec, nil
}

func (f *Fixed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *Fixed) Dimension() int { return f.dim }

// splitmix64 is the standard 64-bit mix used to stretch one hash into a
// stream of well-distributed words.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
