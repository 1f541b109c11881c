package predict

import (
	"io"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/quantize"
)

// Regression predicts each cell from a per-block affine fit
// pred(i,j,k) = a*i + b*j + c*k + d over the block's local coordinates,
// fit once per block by ordinary least squares. The block's local
// coordinate grid is regular, so every normal-equation moment sum has a
// fixed closed form and needs no per-cell accumulation pass beyond summing
// the field values. Regression only applies to 3-D arrays: Precompress
// declines every other dimensionality, leaving the Composed predictor to
// fall back to Lorenzo. Each coefficient is stored as a delta-quantized
// code against the previous block's recovered coefficient, so a field with
// constant slope collapses the three slope codes of every block after the
// first to near zero; the intercept code still follows the change in the
// field's value from one block origin to the next.
type Regression[T float32 | float64] struct {
	Eps       float64
	BlockSize int

	coeffs         [4]float64 // a, b, c, d
	origin         []int      // block origin, so Predict can recover local coordinates
	qa, qb, qc, qd *quantize.CoeffQuantizer
	ca, cb, cc, cd int32

	// prev holds the previous block's recovered coefficients, against
	// which the next block's are delta-quantized. A fresh Regression is
	// constructed per pass, so the zero value already gives every pass a
	// zero starting baseline.
	prev [4]float64
}

// NewRegression returns a regression predictor with coefficient quantizers
// stepped at eps/((N+1)*blockSize) for the slopes and eps/(N+1) for the
// intercept.
func NewRegression[T float32 | float64](eps float64, blockSize int) *Regression[T] {
	const n = 3
	return &Regression[T]{
		Eps:       eps,
		BlockSize: blockSize,
		qa:        quantize.NewLinearCoeffQuantizer(eps, n, blockSize),
		qb:        quantize.NewLinearCoeffQuantizer(eps, n, blockSize),
		qc:        quantize.NewLinearCoeffQuantizer(eps, n, blockSize),
		qd:        quantize.NewIndepCoeffQuantizer(eps, n),
	}
}

// Precompress fits the affine model over the block by closed-form least
// squares and declines blocks outside 3 dimensions or with any degenerate
// (length-1) axis, since a length-1 axis leaves that term's slope
// unobservable.
func (p *Regression[T]) Precompress(v *ndarray.View[T], blk ndarray.Block) bool {
	if v.N() != 3 {
		return false
	}
	lens := blk.Lens()
	for _, l := range lens {
		if l < 2 {
			return false
		}
	}

	nx, ny, nz := float64(lens[0]), float64(lens[1]), float64(lens[2])
	count := nx * ny * nz

	// First and second raw moments of a 0..n-1 integer run.
	moment1 := func(n float64) float64 { return (n - 1) / 2 }
	moment2 := func(n float64) float64 {
		// sum_{i=0}^{n-1} i^2 = (n-1)n(2n-1)/6
		return (n - 1) * n * (2*n - 1) / (6 * n)
	}

	sx, sy, sz := moment1(nx)*count, moment1(ny)*count, moment1(nz)*count
	sxx, syy, szz := moment2(nx)*count, moment2(ny)*count, moment2(nz)*count
	sxy := moment1(nx) * moment1(ny) * count
	sxz := moment1(nx) * moment1(nz) * count
	syz := moment1(ny) * moment1(nz) * count

	var sf, sxf, syf, szf float64
	r := ndarray.NewRange(blk.Begin, blk.End)
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		f := float64(v.At(idx))
		lx := float64(idx[0] - blk.Begin[0])
		ly := float64(idx[1] - blk.Begin[1])
		lz := float64(idx[2] - blk.Begin[2])
		sf += f
		sxf += lx * f
		syf += ly * f
		szf += lz * f
	}

	// Normal equations for [a b c d]^T against moment matrix built above.
	A := [4][5]float64{
		{sxx, sxy, sxz, sx, sxf},
		{sxy, syy, syz, sy, syf},
		{sxz, syz, szz, sz, szf},
		{sx, sy, sz, count, sf},
	}
	coeffs, ok := solve4(A)
	if !ok {
		return false
	}
	// A coefficient delta too large for an int32 code cannot be stored;
	// decline the block so Composed falls back to another candidate.
	steps := [4]float64{p.qa.Step, p.qb.Step, p.qc.Step, p.qd.Step}
	for i := range coeffs {
		if abs((coeffs[i]-p.prev[i])/steps[i]) >= 1<<31-1 {
			return false
		}
	}
	p.coeffs = coeffs
	p.ca = p.qa.Quantize(p.prev[0], p.coeffs[0])
	p.cb = p.qb.Quantize(p.prev[1], p.coeffs[1])
	p.cc = p.qc.Quantize(p.prev[2], p.coeffs[2])
	p.cd = p.qd.Quantize(p.prev[3], p.coeffs[3])
	p.coeffs[0] = p.qa.Recover(p.prev[0], p.ca)
	p.coeffs[1] = p.qb.Recover(p.prev[1], p.cb)
	p.coeffs[2] = p.qc.Recover(p.prev[2], p.cc)
	p.coeffs[3] = p.qd.Recover(p.prev[3], p.cd)
	// p.prev is deliberately left untouched here: Composed tries every
	// candidate's Precompress per block to estimate its error before
	// choosing one, so committing prev here would advance it even for
	// blocks where this candidate is not selected. It is committed in Save,
	// which (like Load on the decode side) only runs for the candidate
	// Composed actually picked.
	p.SetOrigin(blk)
	return true
}

// SetOrigin records the block Predict/Compress/Decompress/Load apply to.
func (p *Regression[T]) SetOrigin(blk ndarray.Block) {
	p.origin = append([]int(nil), blk.Begin...)
}

// solve4 solves the 4x4 linear system [A|b] by Gaussian elimination with
// partial pivoting, returning false if the system is singular. The moment
// matrix depends only on the block's shape, so that happens only for a
// block with a length-1 axis, which Precompress already declines.
func solve4(a [4][5]float64) ([4]float64, bool) {
	const n = 4
	for col := 0; col < n; col++ {
		piv := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[piv][col]) {
				piv = r
			}
		}
		a[col], a[piv] = a[piv], a[col]
		if abs(a[col][col]) < 1e-12 {
			return [4]float64{}, false
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	var out [4]float64
	for i := 0; i < n; i++ {
		out[i] = a[i][n] / a[i][i]
	}
	return out, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Predict evaluates the fitted affine model at a global index, translating
// it to the block-local coordinates the model was fit against.
func (p *Regression[T]) Predict(v *ndarray.View[T], idx []int) float64 {
	lx := float64(idx[0] - p.origin[0])
	ly := float64(idx[1] - p.origin[1])
	lz := float64(idx[2] - p.origin[2])
	return p.coeffs[0]*lx + p.coeffs[1]*ly + p.coeffs[2]*lz + p.coeffs[3]
}

func (p *Regression[T]) Compress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *[]int32) {
	r := ndarray.NewRange(blk.Begin, blk.End)
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		pred := p.Predict(v, idx)
		off := v.Offset(idx)
		code := q.QuantizeAndOverwrite(&v.Data[off], pred)
		*codes = append(*codes, code)
	}
}

func (p *Regression[T]) Decompress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *CodeCursor) error {
	r := ndarray.NewRange(blk.Begin, blk.End)
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		pred := p.Predict(v, idx)
		code := codes.Next()
		val, err := q.Recover(pred, code)
		if err != nil {
			return err
		}
		v.Data[v.Offset(idx)] = val
	}
	return nil
}

// Save writes the block's four quantized coefficient codes, ZigZag-folded
// and Elias gamma coded: coefficient deltas sit near zero once a smooth
// field's per-block fits stabilize, so the variable-length code beats a
// fixed 32-bit field on all but the first block.
func (p *Regression[T]) Save(w io.Writer) error {
	bw := bits.NewWriter(w)
	for _, c := range []int32{p.ca, p.cb, p.cc, p.cd} {
		if err := bw.WriteGamma(uint64(bits.EncodeZigZag(c))); err != nil {
			return errutil.Err(err)
		}
	}
	if err := bw.Close(); err != nil {
		return errutil.Err(err)
	}
	// Only now commit this block's recovered coefficients as the baseline
	// for the next block's delta: Save runs only for the candidate Composed
	// actually chose, the same condition under which Load runs on decode.
	p.prev = p.coeffs
	return nil
}

// Load reads the block's four quantized coefficient codes and recovers the
// coefficients against the previous block's baseline, matching the encode
// side's delta in Precompress.
func (p *Regression[T]) Load(r io.Reader) error {
	br := bits.NewReader(r)
	codes := make([]int32, 4)
	for i := range codes {
		z, err := br.ReadGamma()
		if err != nil {
			return errutil.Err(err)
		}
		codes[i] = bits.DecodeZigZag(uint32(z))
	}
	p.ca, p.cb, p.cc, p.cd = codes[0], codes[1], codes[2], codes[3]
	p.coeffs[0] = p.qa.Recover(p.prev[0], p.ca)
	p.coeffs[1] = p.qb.Recover(p.prev[1], p.cb)
	p.coeffs[2] = p.qc.Recover(p.prev[2], p.cc)
	p.coeffs[3] = p.qd.Recover(p.prev[3], p.cd)
	p.prev = p.coeffs
	return nil
}
