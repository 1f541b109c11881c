package progressive_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/progressive"
)

func syntheticGrid(dims []int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	size := 1
	for _, d := range dims {
		size *= d
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = math.Sin(float64(i)*0.05) + rng.NormFloat64()*0.05
	}
	return data
}

func TestProgressiveRoundTripFullDecode(t *testing.T) {
	dims := []int{16, 16, 16}
	data := syntheticGrid(dims, 7)
	orig := append([]float64(nil), data...)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}

	opt := progressive.DefaultOptions()
	opt.Eps = 1e-2
	stream, err := progressive.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}

	dv, h, err := progressive.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Dims) != 3 {
		t.Fatalf("header dims = %v", h.Dims)
	}
	for i := range orig {
		if math.Abs(orig[i]-dv.Data[i]) > 0.2 {
			t.Fatalf("cell %d: got %v, want ~%v", i, dv.Data[i], orig[i])
		}
	}
}

func TestProgressiveBlobCountAndPrefixBudgets(t *testing.T) {
	dims := []int{16, 16, 16}
	data := syntheticGrid(dims, 3)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	opt := progressive.DefaultOptions()
	opt.BitplaneWidths = []uint8{24, 4, 2, 2}
	opt.Lossless = lossless.IDNone

	stream, err := progressive.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}

	// L = ceil(log2(16)) = 4. Payload blobs after the header = (L-1) coarse
	// + 1 sign + len(BitplaneWidths) = 3 + 1 + 4 = 8 = L+4.
	full, _, err := progressive.DecompressPrefix[float64](stream, -1)
	if err != nil {
		t.Fatal(err)
	}
	if full == nil {
		t.Fatal("expected a full decode result")
	}

	for budget := 0; budget < 8; budget++ {
		if _, _, err := progressive.DecompressPrefix[float64](stream, budget); err != nil {
			t.Fatalf("prefix decode with budget %d failed: %v", budget, err)
		}
	}

	// The 8 payload blobs counted above make up the whole stream: a budget
	// of exactly 8 decodes the same as an unlimited one.
	exact, _, err := progressive.DecompressPrefix[float64](stream, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := range full.Data {
		if exact.Data[i] != full.Data[i] {
			t.Fatalf("budget 8 decode diverged from full decode at cell %d", i)
		}
	}
}

func TestProgressivePrefixDecodeMonotonicallyImproves(t *testing.T) {
	dims := []int{16, 16, 16}
	data := syntheticGrid(dims, 11)
	orig := append([]float64(nil), data...)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	opt := progressive.DefaultOptions()
	opt.Eps = 1e-2
	stream, err := progressive.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}

	rmse := func(got *ndarray.View[float64]) float64 {
		var sum float64
		for i := range orig {
			d := orig[i] - got.Data[i]
			sum += d * d
		}
		return math.Sqrt(sum / float64(len(orig)))
	}

	var prevErr float64 = math.Inf(1)
	for budget := 1; budget <= 8; budget++ {
		got, _, err := progressive.DecompressPrefix[float64](stream, budget)
		if err != nil {
			t.Fatalf("budget %d: %v", budget, err)
		}
		e := rmse(got)
		if e > prevErr+1e-6 {
			t.Fatalf("budget %d: error %v increased from previous %v", budget, e, prevErr)
		}
		prevErr = e
	}
}

func TestProgressiveOddDimsRoundTrip(t *testing.T) {
	dims := []int{9, 9}
	data := syntheticGrid(dims, 5)
	orig := append([]float64(nil), data...)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	opt := progressive.DefaultOptions()
	opt.Eps = 1e-3
	stream, err := progressive.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}
	dv, _, err := progressive.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	// The origin is the sole anchor for a 9x9 grid (the only multiple of the
	// coarsest stride) and is carried raw, so it must decode exactly.
	if got, want := dv.At([]int{0, 0}), orig[0]; got != want {
		t.Fatalf("anchor cell (0,0): got %v, want exact %v", got, want)
	}
	// Every other cell is predicted by exactly one sweep and must land
	// within the error bound, awkward odd extents included.
	for i := range orig {
		if math.Abs(orig[i]-dv.Data[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want within 1e-3 of %v", i, dv.Data[i], orig[i])
		}
	}
}

func TestProgressiveLinearInterpolator(t *testing.T) {
	dims := []int{12, 12}
	data := syntheticGrid(dims, 2)
	orig := append([]float64(nil), data...)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	opt := progressive.DefaultOptions()
	opt.Interpolator = progressive.Linear
	opt.Eps = 1e-2
	stream, err := progressive.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}
	dv, _, err := progressive.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	for i := range orig {
		if math.Abs(orig[i]-dv.Data[i]) > 0.2 {
			t.Fatalf("cell %d: got %v, want ~%v", i, dv.Data[i], orig[i])
		}
	}
}
