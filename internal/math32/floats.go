// Package math32 provides float32 vector kernels used by the index and
// store layers. Loops are unrolled by four; accumulation happens in
// float64 to keep cosine scores stable for high-dimensional vectors.
package math32

import "math"

// Dot returns the dot product of a and b.
// Assumes len(a) == len(b) (caller's responsibility).
func Dot(a, b []float32) float32 {
	var s0, s1, s2, s3 float64

	n := len(a) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += float64(a[i]) * float64(b[i])
		s1 += float64(a[i+1]) * float64(b[i+1])
		s2 += float64(a[i+2]) * float64(b[i+2])
		s3 += float64(a[i+3]) * float64(b[i+3])
	}
	for i := n; i < len(a); i++ {
		s0 += float64(a[i]) * float64(b[i])
	}

	return float32(s0 + s1 + s2 + s3)
}

// SquaredNorm returns the squared L2 norm of v.
func SquaredNorm(v []float32) float64 {
	var s0, s1, s2, s3 float64

	n := len(v) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += float64(v[i]) * float64(v[i])
		s1 += float64(v[i+1]) * float64(v[i+1])
		s2 += float64(v[i+2]) * float64(v[i+2])
		s3 += float64(v[i+3]) * float64(v[i+3])
	}
	for i := n; i < len(v); i++ {
		s0 += float64(v[i]) * float64(v[i])
	}

	return s0 + s1 + s2 + s3
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	return math.Sqrt(SquaredNorm(v))
}

// ScaleInPlace multiplies every element of v by scalar.
func ScaleInPlace(v []float32, scalar float32) {
	for i := range v {
		v[i] *= scalar
	}
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v is empty or has zero norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := SquaredNorm(v)
	if norm2 == 0 {
		return false
	}
	ScaleInPlace(v, float32(1/math.Sqrt(norm2)))
	return true
}

// NormalizeL2Copy returns an L2-normalized copy of src.
// Returns false if src is empty or has zero norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := make([]float32, len(src))
	copy(dst, src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
