// Package config defines the compressor's option surface and validates it
// up front: a single Validate pass that rejects an invalid configuration
// before any encoding work starts.
package config

import (
	"gonum.org/v1/gonum/floats"

	"github.com/scidata-compress/sz/predict"
	"github.com/scidata-compress/sz/szerr"
)

// ErrorBoundMode selects how the configured error bound is interpreted.
type ErrorBoundMode uint8

const (
	// Absolute interprets Eps as a fixed per-cell bound.
	Absolute ErrorBoundMode = iota
	// Relative interprets Eps as a fraction of the data's value range
	// (max-min over the whole array).
	Relative
	// Both takes the tighter of the absolute and relative-converted bounds.
	Both
)

// Encoder selects the entropy coder driving the quant-code stream.
type Encoder uint8

const (
	EncoderHuffman Encoder = iota
	EncoderBypass
)

// Pipeline selects between the block-structured predict/quantize pipeline
// and the progressive multi-level interpolation pipeline.
type Pipeline uint8

const (
	PipelineBlock Pipeline = iota
	PipelineProgressive
)

// Config is the full set of tunables for both pipelines.
type Config struct {
	// Eps is the error bound, interpreted per ErrorBoundMode.
	Eps float64
	// ErrorBoundMode selects absolute, relative, or both.
	ErrorBoundMode ErrorBoundMode
	// BlockSize is the edge length of each compression block (PipelineBlock
	// only).
	BlockSize int
	// Predictors lists, in trial order, the predictor ids the Composed
	// predictor chooses among. The one-byte per-block selection tag is
	// written even when only one predictor is listed.
	Predictors []predict.ID
	// EncoderKind selects Huffman or Bypass entropy coding.
	EncoderKind Encoder
	// Lossless selects the back-end lossless codec id (a lossless.ID value
	// held as a plain uint8; sz.Compress converts it).
	Lossless uint8
	// Pipeline selects block or progressive.
	Pipeline Pipeline
	// EBRatio is the relative error-bound ratio applied to levels >= 3 of
	// the progressive pipeline.
	EBRatio float64
	// Radius is R, half the quantizer's code alphabet; codes
	// outside [-R+1, R-1] fall back to the unpredictable-value path.
	Radius int32
}

// Default returns a configuration suited to typical simulation grids:
// absolute error bound, block size 6, Lorenzo-1/Lorenzo-2/Regression
// composed predictor, Huffman entropy coding, zstd lossless back-end, block
// pipeline.
func Default() Config {
	return Config{
		Eps:            1e-3,
		ErrorBoundMode: Absolute,
		BlockSize:      6,
		Predictors:     []predict.ID{predict.IDLorenzo1, predict.IDLorenzo2, predict.IDRegression},
		EncoderKind:    EncoderHuffman,
		Lossless:       1, // lossless.IDZstd
		Pipeline:       PipelineBlock,
		EBRatio:        0.5,
		Radius:         1 << 15,
	}
}

// Validate rejects a configuration that cannot be encoded.
func (c Config) Validate() error {
	if c.Eps <= 0 {
		return szerr.New(szerr.ConfigError, "error bound must be positive, got %g", c.Eps)
	}
	if c.Radius <= 0 {
		return szerr.New(szerr.ConfigError, "radius must be positive, got %d", c.Radius)
	}
	if c.Pipeline == PipelineBlock {
		if c.BlockSize < 2 {
			return szerr.New(szerr.ConfigError, "block size must be >= 2, got %d", c.BlockSize)
		}
		if len(c.Predictors) == 0 {
			return szerr.New(szerr.ConfigError, "at least one predictor must be configured")
		}
	}
	if c.Pipeline == PipelineProgressive && c.EBRatio <= 0 {
		return szerr.New(szerr.ConfigError, "progressive error bound ratio must be positive, got %g", c.EBRatio)
	}
	switch c.ErrorBoundMode {
	case Absolute, Relative, Both:
	default:
		return szerr.New(szerr.ConfigError, "unknown error bound mode %d", c.ErrorBoundMode)
	}
	switch c.EncoderKind {
	case EncoderHuffman, EncoderBypass:
	default:
		return szerr.New(szerr.ConfigError, "unknown encoder kind %d", c.EncoderKind)
	}
	return nil
}

// ResolveErrorBound converts the configured Eps/ErrorBoundMode into the
// absolute per-cell bound used by the quantizer, given the full data range.
// Both takes min(absolute, relative-converted). A constant array has value
// range 0, which under Relative yields a zero bound, and under Both as well,
// since Both takes the smaller of the two; only Absolute gives a non-zero
// bound on such data.
func (c Config) ResolveErrorBound(data []float64) float64 {
	switch c.ErrorBoundMode {
	case Absolute:
		return c.Eps
	case Relative:
		return c.Eps * valueRange(data)
	case Both:
		rel := c.Eps * valueRange(data)
		abs := c.Eps
		if rel < abs {
			return rel
		}
		return abs
	default:
		return c.Eps
	}
}

func valueRange(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data) - floats.Min(data)
}
