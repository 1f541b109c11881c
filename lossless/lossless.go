// Package lossless implements the opaque lossless back-end the block and
// progressive compressors hand their serialized per-blob state to before it
// reaches the wire. Every codec here has the same, trivial contract
// (Compress/Decompress on a flat byte slice), letting the rest of the
// pipeline stay agnostic to which one is configured.
package lossless

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// ID selects a lossless back-end in the wire header.
type ID uint8

const (
	IDNone ID = 0
	IDZstd ID = 1
)

// Codec compresses and decompresses an opaque byte blob.
type Codec interface {
	ID() ID
	Compress(raw []byte) ([]byte, error)
	Decompress(compressed []byte, rawLen int) ([]byte, error)
}

// New returns the codec for id.
func New(id ID) (Codec, error) {
	switch id {
	case IDNone:
		return None{}, nil
	case IDZstd:
		return Zstd{}, nil
	default:
		return nil, errors.Errorf("lossless: unknown codec id %d", id)
	}
}

// None passes data through unmodified, for payloads too small or already
// incompressible enough that zstd's framing overhead isn't worth paying.
type None struct{}

func (None) ID() ID { return IDNone }

func (None) Compress(raw []byte) ([]byte, error) {
	return raw, nil
}

func (None) Decompress(compressed []byte, rawLen int) ([]byte, error) {
	if len(compressed) != rawLen {
		return nil, errors.Errorf("lossless: none codec length mismatch: got %d, want %d", len(compressed), rawLen)
	}
	return compressed, nil
}

// Zstd wraps klauspost/compress/zstd's stateless EncodeAll/DecodeAll
// helpers, the lossless back-end for every blob the block and progressive
// compressors produce (predictor state, quantizer state, Huffman codebook,
// quant bitstream).
type Zstd struct{}

func (Zstd) ID() ID { return IDZstd }

func (Zstd) Compress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.Wrap(err, "lossless: open zstd encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

func (Zstd) Decompress(compressed []byte, rawLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "lossless: open zstd decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, make([]byte, 0, rawLen))
	if err != nil {
		return nil, errors.Wrap(err, "lossless: zstd decode")
	}
	return out, nil
}
