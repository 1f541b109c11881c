package sz

import (
	"github.com/pkg/errors"

	"github.com/scidata-compress/sz/blockcompressor"
	"github.com/scidata-compress/sz/config"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/progressive"
)

// Compress validates cfg, resolves its error bound against data's value
// range, and runs whichever of the two core pipelines cfg.Pipeline selects.
func Compress[T float32 | float64](cfg config.Config, data []T, dims []int) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	v, err := ndarray.NewView[T](data, dims)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	eps := cfg.ResolveErrorBound(toFloat64s(data))

	switch cfg.Pipeline {
	case config.PipelineBlock:
		opt := blockcompressor.Options{
			Eps:         eps,
			Radius:      cfg.Radius,
			BlockSize:   cfg.BlockSize,
			Predictors:  cfg.Predictors,
			EncoderKind: uint8(cfg.EncoderKind),
			Lossless:    lossless.ID(cfg.Lossless),
		}
		stream, err := blockcompressor.Compress[T](opt, v)
		if err != nil {
			return nil, errors.Wrap(err, "sz: block pipeline compress")
		}
		return stream, nil
	case config.PipelineProgressive:
		opt := progressive.DefaultOptions()
		opt.Eps = eps
		opt.Radius = cfg.Radius
		opt.EBRatio = cfg.EBRatio
		opt.Lossless = lossless.ID(cfg.Lossless)
		stream, err := progressive.Compress[T](opt, v)
		if err != nil {
			return nil, errors.Wrap(err, "sz: progressive pipeline compress")
		}
		return stream, nil
	default:
		return nil, errors.Errorf("sz: unknown pipeline %d", cfg.Pipeline)
	}
}

// Decompress reconstructs an array from a stream produced by Compress,
// dispatching on the stream's magic prefix since both pipelines are
// self-describing.
func Decompress[T float32 | float64](stream []byte) (*ndarray.View[T], error) {
	switch {
	case hasMagic(stream, blockcompressor.Magic):
		v, _, err := blockcompressor.Decompress[T](stream)
		if err != nil {
			return nil, errors.Wrap(err, "sz: block pipeline decompress")
		}
		return v, nil
	case hasMagic(stream, progressive.Magic):
		v, _, err := progressive.Decompress[T](stream)
		if err != nil {
			return nil, errors.Wrap(err, "sz: progressive pipeline decompress")
		}
		return v, nil
	default:
		return nil, errors.Errorf("sz: unrecognized stream magic %q", first4(stream))
	}
}

// DecompressPrefix decodes at most maxBlobs blobs of a progressive-pipeline
// stream, for a caller willing to trade accuracy for a shorter transfer; it
// errors for a block-pipeline stream, which has no partial-decode mode.
func DecompressPrefix[T float32 | float64](stream []byte, maxBlobs int) (*ndarray.View[T], error) {
	if !hasMagic(stream, progressive.Magic) {
		return nil, errors.New("sz: DecompressPrefix requires a progressive-pipeline stream")
	}
	v, _, err := progressive.DecompressPrefix[T](stream, maxBlobs)
	if err != nil {
		return nil, errors.Wrap(err, "sz: progressive pipeline prefix decompress")
	}
	return v, nil
}

func hasMagic(stream []byte, magic [4]byte) bool {
	if len(stream) < 4 {
		return false
	}
	return [4]byte{stream[0], stream[1], stream[2], stream[3]} == magic
}

func first4(stream []byte) []byte {
	if len(stream) < 4 {
		return stream
	}
	return stream[:4]
}

func toFloat64s[T float32 | float64](data []T) []float64 {
	out := make([]float64, len(data))
	for i, x := range data {
		out[i] = float64(x)
	}
	return out
}
