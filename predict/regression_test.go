package predict_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/predict"
	"github.com/scidata-compress/sz/quantize"
)

func TestRegressionDeclinesNon3D(t *testing.T) {
	dims := []int{4, 4}
	data := make([]float64, 16)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	blk := ndarray.Block{Begin: []int{0, 0}, End: dims}
	r := predict.NewRegression[float64](1e-3, 4)
	if r.Precompress(v, blk) {
		t.Fatal("regression should decline a 2-D block")
	}
}

func TestRegressionDeclinesDegenerateAxis(t *testing.T) {
	dims := []int{1, 4, 4}
	data := make([]float64, 16)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	blk := ndarray.Block{Begin: []int{0, 0, 0}, End: dims}
	r := predict.NewRegression[float64](1e-3, 4)
	if r.Precompress(v, blk) {
		t.Fatal("regression should decline a block with a length-1 axis")
	}
}

func TestRegressionFitsExactPlane(t *testing.T) {
	dims := []int{4, 4, 4}
	data := make([]float64, 64)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	a, b, c, d := 2.0, -1.0, 0.5, 3.0
	rg := ndarray.NewRange([]int{0, 0, 0}, dims)
	for {
		idx, ok := rg.Next()
		if !ok {
			break
		}
		x, y, z := float64(idx[0]), float64(idx[1]), float64(idx[2])
		v.Data[v.Offset(idx)] = a*x + b*y + c*z + d
	}

	blk := ndarray.Block{Begin: []int{0, 0, 0}, End: dims}
	r := predict.NewRegression[float64](1e-6, 4)
	if !r.Precompress(v, blk) {
		t.Fatal("regression should accept a well-posed 3-D block")
	}

	rg2 := ndarray.NewRange([]int{0, 0, 0}, dims)
	for {
		idx, ok := rg2.Next()
		if !ok {
			break
		}
		want := v.At(idx)
		got := r.Predict(v, idx)
		if math.Abs(got-want) > 1e-3 {
			t.Fatalf("Predict(%v) = %v, want ~%v", idx, got, want)
		}
	}
}

func TestRegressionSaveLoadRoundTrip(t *testing.T) {
	dims := []int{3, 3, 3}
	data := make([]float64, 27)
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	rg := ndarray.NewRange([]int{0, 0, 0}, dims)
	for {
		idx, ok := rg.Next()
		if !ok {
			break
		}
		x, y, z := float64(idx[0]), float64(idx[1]), float64(idx[2])
		v.Data[v.Offset(idx)] = 1.5*x + 2*y - 0.25*z + 7
	}

	blk := ndarray.Block{Begin: []int{0, 0, 0}, End: dims}
	r := predict.NewRegression[float64](1e-4, 3)
	if !r.Precompress(v, blk) {
		t.Fatal("regression should accept")
	}

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		t.Fatal(err)
	}

	r2 := predict.NewRegression[float64](1e-4, 3)
	r2.SetOrigin(blk)
	if err := r2.Load(&buf); err != nil {
		t.Fatal(err)
	}

	idx := []int{1, 2, 0}
	if got, want := r2.Predict(v, idx), r.Predict(v, idx); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Load roundtrip prediction mismatch: got %v, want %v", got, want)
	}
}

func TestRegressionCompressDecompressRoundTrip(t *testing.T) {
	dims := []int{4, 4, 4}
	data := make([]float64, 64)
	for i := range data {
		data[i] = float64(i)*0.7 + math.Sin(float64(i))
	}
	orig := append([]float64(nil), data...)

	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	blk := ndarray.Block{Begin: []int{0, 0, 0}, End: dims}
	r := predict.NewRegression[float64](1e-3, 4)
	if !r.Precompress(v, blk) {
		t.Fatal("regression should accept")
	}

	q := quantize.New[float64](1e-3, 32768)
	var codes []int32
	r.Compress(v, blk, q, &codes)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		t.Fatal(err)
	}

	decData := make([]float64, 64)
	dv, err := ndarray.NewView[float64](decData, dims)
	if err != nil {
		t.Fatal(err)
	}
	dr := predict.NewRegression[float64](1e-3, 4)
	dr.SetOrigin(blk)
	if err := dr.Load(&buf); err != nil {
		t.Fatal(err)
	}
	cur := predict.NewCodeCursor(codes)
	if err := dr.Decompress(dv, blk, q, cur); err != nil {
		t.Fatal(err)
	}

	for i := range orig {
		if math.Abs(orig[i]-decData[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, decData[i], orig[i])
		}
	}
}
