// Package vector provides the small pure operations the chunker and
// retrieval engine need over fixed-length embedding vectors.
package vector

import (
	"fmt"
	"math"
)

type Vector []float64

// New validates that values has the expected dimensionality.
func New(values []float64, dim int) (Vector, error) {
	if len(values) != dim {
		return nil, fmt.Errorf("vector has %d dimensions, want %d", len(values), dim)
	}
	return Vector(values), nil
}

// Dot returns the dot product of a and b. For L2-normalized inputs this is
// the cosine similarity.
func Dot(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Distance returns the Euclidean (L2) distance between a and b.
func Distance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-length copy of v. The zero vector is returned
// unchanged.
func (v Vector) Normalized() Vector {
	n := v.Norm()
	out := make(Vector, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, f := range v {
		out[i] = f / n
	}
	return out
}
