// Package ndarray implements the dense N-dimensional array view and block
// iteration layout that the predictors and block compressor walk: row-major
// strides, half-open block ranges clipped at the far boundary, and per-cell
// linear offset resolution. N is bounded to 1..4 per the data model.
package ndarray

import "github.com/scidata-compress/sz/szerr"

// MaxDims is the largest supported dimensionality.
const MaxDims = 4

// View borrows a contiguous row-major buffer and describes its shape. The
// compressor mutates Data in place during compression so that predictions
// made during decompression see exactly the values the encoder saw. This
// is a hard invariant of the whole pipeline, not an optimization.
type View[T float32 | float64] struct {
	Data []T
	// Dims holds the per-axis extents, dims[0] the slowest-varying axis.
	Dims []int
	// Strides holds the row-major strides; Strides[len-1] == 1.
	Strides []int
}

// NewView builds a view over data with the given dims, validating that the
// buffer is large enough and that N is within range.
func NewView[T float32 | float64](data []T, dims []int) (*View[T], error) {
	n := len(dims)
	if n < 1 || n > MaxDims {
		return nil, szerr.New(szerr.ConfigError, "unsupported dimensionality N=%d (want 1..%d)", n, MaxDims)
	}
	size := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, szerr.New(szerr.ConfigError, "non-positive dimension in dims=%v", dims)
		}
		size *= d
	}
	if len(data) != size {
		return nil, szerr.New(szerr.ConfigError, "data length %d does not match dims %v (expected %d)", len(data), dims, size)
	}
	strides := Strides(dims)
	return &View[T]{Data: data, Dims: dims, Strides: strides}, nil
}

// Strides computes row-major strides for dims: strides[n-1] = 1,
// strides[i] = strides[i+1] * dims[i+1].
func Strides(dims []int) []int {
	n := len(dims)
	strides := make([]int, n)
	strides[n-1] = 1
	for i := n - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * dims[i+1]
	}
	return strides
}

// N returns the dimensionality of the view.
func (v *View[T]) N() int {
	return len(v.Dims)
}

// Offset resolves a global index tuple to a linear offset into Data. idx
// must have the same length as Dims.
func (v *View[T]) Offset(idx []int) int {
	off := 0
	for i, x := range idx {
		off += x * v.Strides[i]
	}
	return off
}

// At returns the value at the given global index tuple.
func (v *View[T]) At(idx []int) T {
	return v.Data[v.Offset(idx)]
}

// InBounds reports whether idx is a valid index into the array, i.e. every
// axis is within [0, dim). Predictors use it to detect a missing neighbour
// at the array boundary, whose stencil term then contributes zero.
func (v *View[T]) InBounds(idx []int) bool {
	for i, x := range idx {
		if x < 0 || x >= v.Dims[i] {
			return false
		}
	}
	return true
}
