// Package progressive implements the multi-level interpolation pipeline:
// a layered stream of independently lossless-compressed blobs
// produced by a descending-stride multi-level interpolation sweep, with the
// finest level's quantized stream further split into sign and bit-plane
// slices so a client can decode a length-bounded prefix for a coarser
// approximation.
package progressive

import (
	"math"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/quantize"
)

// Interpolator selects the 1-D sweep formula.
type Interpolator uint8

const (
	Linear Interpolator = 0
	Cubic  Interpolator = 1
)

// Options configures a progressive compression pass.
type Options struct {
	Eps            float64
	Radius         int32
	EBRatio        float64 // relative bound for level >= 3, default 0.5
	Interpolator   Interpolator
	Direction      int // permutation id in [0, N!)
	InterpDimLimit int // unused by this tile-free implementation; kept for wire compatibility
	BitplaneWidths []uint8
	Lossless       lossless.ID
}

// DefaultOptions returns the defaults suited to typical simulation grids.
func DefaultOptions() Options {
	return Options{
		Eps:            1e-3,
		Radius:         1 << 15,
		EBRatio:        0.5,
		Interpolator:   Cubic,
		Direction:      0,
		InterpDimLimit: 32,
		BitplaneWidths: append([]uint8(nil), bits.DefaultPlaneWidths...),
		Lossless:       lossless.IDZstd,
	}
}

// levels returns the level count L = ceil(log2(maxDim)).
func levels(dims []int) int {
	max := 0
	for _, d := range dims {
		if d > max {
			max = d
		}
	}
	if max <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(max))))
}

// permutation decodes direction into one of N! axis orderings via its
// Lehmer code. The table is fixed, so encoder and decoder derive the same
// ordering from the direction id alone.
func permutation(n, direction int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, 0, n)
	d := direction
	for i := n; i > 0; i-- {
		f := factorial(i - 1)
		idx := 0
		if f > 0 {
			idx = (d / f) % i
			d -= idx * f
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}

// errorBoundFor returns the absolute bound for level lvl (1-indexed,
// finest=1): eps for lvl<=2, ebRatio*eps for lvl>=3. With a ratio below 1
// (the default is 0.5) the coarse levels carry the tighter bound and the two
// finest levels relax to eps.
func errorBoundFor(lvl int, opt Options) float64 {
	if lvl <= 2 {
		return opt.Eps
	}
	return opt.EBRatio * opt.Eps
}

// otherCoords enumerates the cartesian product of grid positions (multiples
// of strides[i]) for every axis except `axis`, within dims. Restricting each
// axis to exact stride multiples is what guarantees every cell is predicted
// by exactly one sweep across the whole level schedule.
func otherCoords(dims []int, axis int, strides []int) [][]int {
	n := len(dims)
	axesPositions := make([][]int, n)
	for i := 0; i < n; i++ {
		if i == axis {
			continue
		}
		st := strides[i]
		var pos []int
		for p := 0; p < dims[i]; p += st {
			pos = append(pos, p)
		}
		axesPositions[i] = pos
	}

	var out [][]int
	cur := make([]int, n)
	var rec func(i int)
	rec = func(i int) {
		if i == n {
			out = append(out, append([]int(nil), cur...))
			return
		}
		if i == axis {
			rec(i + 1)
			return
		}
		for _, p := range axesPositions[i] {
			cur[i] = p
			rec(i + 1)
		}
	}
	rec(0)
	return out
}

// predict1D computes the interpolated value at position p along axis,
// given the other coordinates fixed in idx (idx[axis] is overwritten by
// this function as it probes neighbours).
func predict1D[T float32 | float64](v *ndarray.View[T], idx []int, axis, p, s, dimSize int, interp Interpolator) float64 {
	read := func(pos int) (float64, bool) {
		if pos < 0 || pos >= dimSize {
			return 0, false
		}
		idx[axis] = pos
		return float64(v.At(idx)), true
	}

	b, okB := read(p - s)
	c, okC := read(p + s)

	useCubic := interp == Cubic && dimSize/s >= 5
	if useCubic {
		a, okA := read(p - 3*s)
		d, okD := read(p + 3*s)
		switch {
		case okA && okB && okC && okD:
			return (-a + 9*b + 9*c - d) / 16
		case okB && okC && okD && !okA:
			// 3-point quadratic forward form (no left-outer sample).
			return (3*b + 6*c - d) / 8
		case okA && okB && okC && !okD:
			// 3-point quadratic backward form (no right-outer sample).
			return (-a + 6*b + 3*c) / 8
		}
	}

	switch {
	case okB && okC:
		return (b + c) / 2
	case okB && !okC:
		// Tail sample, even sweep length: linear extrapolation from the two
		// prior known samples.
		a, okA := read(p - 3*s)
		if okA {
			return 1.5*b - 0.5*a
		}
		return b
	case okC && !okB:
		a, okA := read(p + 3*s)
		if okA {
			return 1.5*c - 0.5*a
		}
		return c
	}
	return 0
}

// walkLevel traverses every cell a level's 1-D sweep predicts, in the same
// deterministic order the encoder and decoder must both replay, invoking
// visit(idx, pred) for each. The encoder quantizes *cell against pred;
// the decoder recovers *cell from pred and the next code. Both share this
// one traversal so the orders can never drift apart.
func walkLevel[T float32 | float64](v *ndarray.View[T], perm []int, s int, interp Interpolator, visit func(idx []int, pred float64)) {
	dims := v.Dims
	n := len(dims)
	strides := make([]int, n)
	for i := range strides {
		strides[i] = 2 * s
	}
	for _, axis := range perm {
		dimSize := dims[axis]
		// No odd multiple of s fits in this axis, so there is nothing to
		// predict here at this level.
		if dimSize <= s {
			strides[axis] = s
			continue
		}
		coordSets := otherCoords(dims, axis, strides)
		for _, base := range coordSets {
			idx := append([]int(nil), base...)
			for p := s; p < dimSize; p += 2 * s {
				pred := predict1D(v, idx, axis, p, s, dimSize, interp)
				idx[axis] = p
				visit(idx, pred)
			}
		}
		strides[axis] = s
	}
}

// levelPass runs a level's sweep on the encode side, quantizing every
// predicted cell with q and appending its code to codes.
func levelPass[T float32 | float64](v *ndarray.View[T], perm []int, s int, interp Interpolator, q *quantize.Quantizer[T], codes *[]int32) {
	walkLevel(v, perm, s, interp, func(idx []int, pred float64) {
		off := v.Offset(idx)
		code := q.QuantizeAndOverwrite(&v.Data[off], pred)
		*codes = append(*codes, code)
	})
}

// applyLevelPass runs a level's sweep on the decode side, consuming one
// code per predicted cell (in the same order levelPass produced them) and
// writing the recovered value back into v.
func applyLevelPass[T float32 | float64](v *ndarray.View[T], perm []int, s int, interp Interpolator, q *quantize.Quantizer[T], codes []int32) error {
	i := 0
	var walkErr error
	walkLevel(v, perm, s, interp, func(idx []int, pred float64) {
		if walkErr != nil {
			return
		}
		if i >= len(codes) {
			walkErr = errutil.Newf("progressive: ran out of codes while replaying level sweep")
			return
		}
		val, err := q.Recover(pred, codes[i])
		i++
		if err != nil {
			walkErr = err
			return
		}
		v.Data[v.Offset(idx)] = val
	})
	return walkErr
}
