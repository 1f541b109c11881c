package sz_test

import (
	"math"
	"testing"

	sz "github.com/scidata-compress/sz"
	"github.com/scidata-compress/sz/config"
)

func TestCompressDecompressBlockPipeline(t *testing.T) {
	dims := []int{6, 6, 6}
	data := make([]float64, 216)
	for i := range data {
		data[i] = math.Sin(float64(i) * 0.2)
	}
	orig := append([]float64(nil), data...)

	cfg := config.Default()
	stream, err := sz.Compress(cfg, data, dims)
	if err != nil {
		t.Fatal(err)
	}
	v, err := sz.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	for i := range orig {
		if math.Abs(orig[i]-v.Data[i]) > cfg.Eps+1e-9 {
			t.Fatalf("cell %d: got %v, want ~%v", i, v.Data[i], orig[i])
		}
	}
}

func TestCompressDecompressProgressivePipeline(t *testing.T) {
	dims := []int{16, 16}
	data := make([]float64, 256)
	for i := range data {
		data[i] = math.Cos(float64(i) * 0.1)
	}
	orig := append([]float64(nil), data...)

	cfg := config.Default()
	cfg.Pipeline = config.PipelineProgressive
	cfg.Eps = 1e-2
	stream, err := sz.Compress(cfg, data, dims)
	if err != nil {
		t.Fatal(err)
	}
	v, err := sz.Decompress[float64](stream)
	if err != nil {
		t.Fatal(err)
	}
	for i := range orig {
		if math.Abs(orig[i]-v.Data[i]) > 0.2 {
			t.Fatalf("cell %d: got %v, want ~%v", i, v.Data[i], orig[i])
		}
	}
}

func TestDecompressPrefixRejectsBlockStream(t *testing.T) {
	dims := []int{4, 4}
	data := make([]float64, 16)
	cfg := config.Default()
	stream, err := sz.Compress(cfg, data, dims)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sz.DecompressPrefix[float64](stream, 1); err == nil {
		t.Fatal("expected error decoding a block-pipeline stream with DecompressPrefix")
	}
}

func TestCompressRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Eps = 0
	if _, err := sz.Compress(cfg, []float64{1, 2, 3, 4}, []int{2, 2}); err == nil {
		t.Fatal("expected validation error")
	}
}
