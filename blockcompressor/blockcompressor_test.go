package blockcompressor_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/scidata-compress/sz/blockcompressor"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/predict"
)

func defaultOptions() blockcompressor.Options {
	return blockcompressor.Options{
		Eps:         1e-3,
		Radius:      32768,
		BlockSize:   4,
		Predictors:  []predict.ID{predict.IDLorenzo1, predict.IDLorenzo2, predict.IDRegression},
		EncoderKind: 0,
		Lossless:    lossless.IDZstd,
	}
}

func roundTrip(t *testing.T, dims []int, data []float64, opt blockcompressor.Options) []float64 {
	t.Helper()
	v, err := ndarray.NewView[float64](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := blockcompressor.Compress[float64](opt, v)
	if err != nil {
		t.Fatal(err)
	}
	dv, h, err := blockcompressor.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Dims) != len(dims) {
		t.Fatalf("header dims mismatch: got %v, want %v", h.Dims, dims)
	}
	return dv.Data
}

func TestBlockCompressorRoundTrip3D(t *testing.T) {
	dims := []int{9, 7, 5}
	size := 9 * 7 * 5
	rng := rand.New(rand.NewSource(1))
	data := make([]float64, size)
	for i := range data {
		data[i] = math.Sin(float64(i)*0.1) + rng.NormFloat64()*0.01
	}
	orig := append([]float64(nil), data...)

	got := roundTrip(t, dims, data, defaultOptions())
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorRoundTripNonMultipleOfBlockSize(t *testing.T) {
	dims := []int{5, 5} // blockSize 4 leaves a tail
	size := 25
	data := make([]float64, size)
	for i := range data {
		data[i] = float64(i) * 0.3
	}
	orig := append([]float64(nil), data...)

	opt := defaultOptions()
	opt.Predictors = []predict.ID{predict.IDLorenzo1}
	got := roundTrip(t, dims, data, opt)
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorRoundTripConstantInput(t *testing.T) {
	dims := []int{4, 4, 4}
	data := make([]float64, 64)
	for i := range data {
		data[i] = 42.0
	}
	orig := append([]float64(nil), data...)

	got := roundTrip(t, dims, data, defaultOptions())
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorRoundTripUnpredictableSpikes(t *testing.T) {
	dims := []int{6, 6}
	size := 36
	data := make([]float64, size)
	for i := range data {
		data[i] = math.Sin(float64(i))
	}
	// A handful of wild spikes, forcing the quantizer's unpredictable path.
	data[3] = 1e9
	data[17] = -1e9
	data[30] = 5e8
	orig := append([]float64(nil), data...)

	got := roundTrip(t, dims, data, defaultOptions())
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-6*math.Abs(orig[i]) {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorRoundTrip1D(t *testing.T) {
	dims := []int{17}
	data := make([]float64, 17)
	for i := range data {
		data[i] = float64(i*i) * 0.01
	}
	orig := append([]float64(nil), data...)

	opt := defaultOptions()
	opt.Predictors = []predict.ID{predict.IDLorenzo1, predict.IDLorenzo2}
	got := roundTrip(t, dims, data, opt)
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorBypassEncoder(t *testing.T) {
	dims := []int{4, 4}
	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	orig := append([]float64(nil), data...)

	opt := defaultOptions()
	opt.EncoderKind = 1 // bypass
	opt.Predictors = []predict.ID{predict.IDLorenzo1}
	got := roundTrip(t, dims, data, opt)
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorNoneLossless(t *testing.T) {
	dims := []int{3, 3, 3}
	data := make([]float64, 27)
	for i := range data {
		data[i] = float64(i) * 0.5
	}
	orig := append([]float64(nil), data...)

	opt := defaultOptions()
	opt.Lossless = lossless.IDNone
	got := roundTrip(t, dims, data, opt)
	for i := range orig {
		if math.Abs(orig[i]-got[i]) > 1e-3+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, got[i], orig[i])
		}
	}
}

func TestBlockCompressorFloat32RoundTrip(t *testing.T) {
	dims := []int{4, 4, 4}
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(i) * 0.25
	}
	orig := append([]float32(nil), data...)

	v, err := ndarray.NewView[float32](data, dims)
	if err != nil {
		t.Fatal(err)
	}
	opt := defaultOptions()
	opt.Eps = 1e-2
	stream, err := blockcompressor.Compress[float32](opt, v)
	if err != nil {
		t.Fatal(err)
	}
	dv, h, err := blockcompressor.Decompress[float32](stream)
	if err != nil {
		t.Fatal(err)
	}
	if h.ElemType != blockcompressor.ElemFloat32 {
		t.Fatalf("elem type = %v, want ElemFloat32", h.ElemType)
	}
	for i := range orig {
		if math.Abs(float64(orig[i]-dv.Data[i])) > 1e-2+1e-6 {
			t.Fatalf("cell %d: got %v, want ~%v", i, dv.Data[i], orig[i])
		}
	}
}
