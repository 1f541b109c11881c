package predict_test

import (
	"math"
	"testing"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/predict"
	"github.com/scidata-compress/sz/quantize"
)

func TestLorenzoOrder1MatchesClosedForm(t *testing.T) {
	dims := []int{4, 4}
	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i) * 1.5
	}
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	l := predict.NewLorenzo[float64](1)

	// x[1,1] predicted from x[0,1]+x[1,0]-x[0,0].
	idx := []int{1, 1}
	want := v.At([]int{0, 1}) + v.At([]int{1, 0}) - v.At([]int{0, 0})
	if got := l.Predict(v, idx); got != want {
		t.Fatalf("Predict(1,1) = %v, want %v", got, want)
	}

	// Boundary cell: only in-bounds neighbours contribute.
	idx0 := []int{0, 0}
	if got := l.Predict(v, idx0); got != 0 {
		t.Fatalf("Predict(0,0) = %v, want 0 (no in-bounds neighbours)", got)
	}
}

func TestLorenzoOrder2MatchesClosedForm1D(t *testing.T) {
	dims := []int{5}
	data := []float64{1, 2, 4, 8, 16}
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	l := predict.NewLorenzo[float64](2)
	// pred(x[2]) = 2*x[1] - x[0]
	want := 2*v.At([]int{1}) - v.At([]int{0})
	if got := l.Predict(v, []int{2}); got != want {
		t.Fatalf("Predict(2) = %v, want %v", got, want)
	}
}

func TestLorenzoCompressDecompressRoundTrip(t *testing.T) {
	dims := []int{6, 5, 4}
	size := 6 * 5 * 4
	data := make([]float64, size)
	for i := range data {
		data[i] = math.Sin(float64(i) * 0.3)
	}
	orig := append([]float64(nil), data...)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}

	blk := ndarray.Block{Begin: []int{0, 0, 0}, End: dims}
	l := predict.NewLorenzo[float64](1)
	if !l.Precompress(v, blk) {
		t.Fatal("Lorenzo should always accept")
	}

	q := quantize.New[float64](1e-3, 32768)
	var codes []int32
	l.Compress(v, blk, q, &codes)

	// Decode into a fresh view, reusing the same quantizer state so
	// unpredictable values line up.
	decData := make([]float64, size)
	dv, err := ndarray.NewView[float64](decData, dims)
	if err != nil {
		t.Fatal(err)
	}
	dl := predict.NewLorenzo[float64](1)
	dl.SetOrigin(blk)
	cur := predict.NewCodeCursor(codes)
	if err := dl.Decompress(dv, blk, q, cur); err != nil {
		t.Fatal(err)
	}

	for i := range orig {
		if math.Abs(orig[i]-decData[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, decData[i], orig[i])
		}
	}
}
