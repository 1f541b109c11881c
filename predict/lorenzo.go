package predict

import (
	"io"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/quantize"
)

// Lorenzo predicts each cell from already-visited neighbours using the
// tensor product, across axes, of a per-axis finite-difference operator:
// D1 = 1 - z^-1 for order 1 (the N-D analogue of a first-difference
// predictor x[n-1]), D2 = (1 - z^-1)^2 for order 2 (the second-difference
// analogue 2x[n-1] - x[n-2]). Expanding the product and setting the
// residual to zero isolates the current cell as minus the sum of every
// other term; a neighbour falling outside the array drops its term
// entirely rather than substituting a boundary value.
type Lorenzo[T float32 | float64] struct {
	Order int // 1 or 2
}

func NewLorenzo[T float32 | float64](order int) *Lorenzo[T] {
	return &Lorenzo[T]{Order: order}
}

// term is one expansion term of the tensor-product difference operator: a
// per-axis neighbour offset and the coefficient contributed by that offset
// combination.
type term struct {
	coeff float64
	step  []int
}

// terms expands the order-k difference operator's tensor product across n
// axes, excluding the all-zero-offset term (the current cell itself, always
// coefficient 1, which is what makes the operator solvable for x[idx]).
func terms(order, n int) []term {
	var offsets []int
	var coeffs []float64
	switch order {
	case 1:
		offsets, coeffs = []int{0, -1}, []float64{1, -1}
	case 2:
		offsets, coeffs = []int{0, -1, -2}, []float64{1, -2, 1}
	default:
		panic("predict: unsupported Lorenzo order")
	}

	var out []term
	step := make([]int, n)
	var rec func(axis int, coeff float64)
	rec = func(axis int, coeff float64) {
		if axis == n {
			allZero := true
			for _, s := range step {
				if s != 0 {
					allZero = false
					break
				}
			}
			if !allZero {
				out = append(out, term{coeff: coeff, step: append([]int(nil), step...)})
			}
			return
		}
		for i, off := range offsets {
			step[axis] = off
			rec(axis+1, coeff*coeffs[i])
		}
	}
	rec(0, 1)
	return out
}

func (l *Lorenzo[T]) Precompress(v *ndarray.View[T], blk ndarray.Block) bool {
	return true
}

// SetOrigin is a no-op: Lorenzo's stencil reads absolute neighbours directly
// from the view and carries no block-relative state.
func (l *Lorenzo[T]) SetOrigin(blk ndarray.Block) {}

// Predict sums every expansion term whose neighbour lies inside the array,
// negated: residual-zero solves x[idx] = -sum(other terms).
func (l *Lorenzo[T]) Predict(v *ndarray.View[T], idx []int) float64 {
	n := v.N()
	ts := terms(l.Order, n)
	var pred float64
	neighbor := make([]int, n)
	for _, t := range ts {
		for i := range idx {
			neighbor[i] = idx[i] + t.step[i]
		}
		if !v.InBounds(neighbor) {
			continue
		}
		pred -= t.coeff * float64(v.At(neighbor))
	}
	return pred
}

func (l *Lorenzo[T]) Compress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *[]int32) {
	r := ndarray.NewRange(blk.Begin, blk.End)
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		pred := l.Predict(v, idx)
		off := v.Offset(idx)
		code := q.QuantizeAndOverwrite(&v.Data[off], pred)
		*codes = append(*codes, code)
	}
}

func (l *Lorenzo[T]) Decompress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *CodeCursor) error {
	r := ndarray.NewRange(blk.Begin, blk.End)
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		pred := l.Predict(v, idx)
		code := codes.Next()
		val, err := q.Recover(pred, code)
		if err != nil {
			return err
		}
		v.Data[v.Offset(idx)] = val
	}
	return nil
}

// Save/Load are no-ops: Lorenzo carries no persistent state beyond the
// shared error bound.
func (l *Lorenzo[T]) Save(w io.Writer) error { return nil }
func (l *Lorenzo[T]) Load(r io.Reader) error { return nil }
