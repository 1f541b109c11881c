// Package blockcompressor implements the non-progressive compression
// pipeline: iterate the array in fixed-size blocks, let the configured
// predictor choose itself per block, quantize every cell's residual,
// entropy-code the resulting stream, and wrap the whole thing in one
// lossless-compressed, length-prefixed blob behind a small fixed header.
package blockcompressor

import (
	"encoding/binary"
	"io"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/predict"
	"github.com/scidata-compress/sz/szerr"
)

// Magic identifies a block-pipeline stream.
var Magic = [4]byte{'S', 'Z', 'B', '1'}

const version = 1

// ElemType identifies the array's element type on the wire.
type ElemType uint8

const (
	ElemFloat32 ElemType = 0
	ElemFloat64 ElemType = 1
)

// Header is the uncompressed prefix of a block-pipeline stream (its size
// depends on the number of dims and predictors): everything
// needed to validate and set up decoding before the lossless payload is
// even touched.
type Header struct {
	ElemType    ElemType
	Dims        []int
	Eps         float64
	Radius      int32
	BlockSize   int
	Predictors  []predict.ID
	EncoderKind uint8
	LosslessID  lossless.ID
}

// writeHeader writes h to w, byte-aligned, no lossless compression applied
// (the header must be readable without knowing which codec sealed the
// payload that follows it).
func writeHeader(w io.Writer, h Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return errutil.Err(err)
	}
	for _, v := range []interface{}{
		uint8(version),
		uint8(h.ElemType),
		uint8(len(h.Dims)),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return errutil.Err(err)
		}
	}
	for _, d := range h.Dims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return errutil.Err(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, h.Eps); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.Radius); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(h.BlockSize)); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(h.Predictors))); err != nil {
		return errutil.Err(err)
	}
	for _, id := range h.Predictors {
		if err := binary.Write(w, binary.LittleEndian, uint8(id)); err != nil {
			return errutil.Err(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, h.EncoderKind); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(h.LosslessID)); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// readHeader reads and validates a Header from r.
func readHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, errutil.Err(err)
	}
	if magic != Magic {
		return Header{}, szerr.New(szerr.CorruptStream, "bad magic %q, want %q", magic, Magic)
	}
	var ver, elemType, ndims uint8
	for _, v := range []*uint8{&ver, &elemType, &ndims} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return Header{}, errutil.Err(err)
		}
	}
	if ver != version {
		return Header{}, szerr.New(szerr.CorruptStream, "unsupported stream version %d", ver)
	}
	h := Header{ElemType: ElemType(elemType)}
	h.Dims = make([]int, ndims)
	for i := range h.Dims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return Header{}, errutil.Err(err)
		}
		h.Dims[i] = int(d)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Eps); err != nil {
		return Header{}, errutil.Err(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Radius); err != nil {
		return Header{}, errutil.Err(err)
	}
	var blockSize uint32
	if err := binary.Read(r, binary.LittleEndian, &blockSize); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.BlockSize = int(blockSize)
	var npred uint8
	if err := binary.Read(r, binary.LittleEndian, &npred); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Predictors = make([]predict.ID, npred)
	for i := range h.Predictors {
		var id uint8
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return Header{}, errutil.Err(err)
		}
		h.Predictors[i] = predict.ID(id)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.EncoderKind); err != nil {
		return Header{}, errutil.Err(err)
	}
	var losslessID uint8
	if err := binary.Read(r, binary.LittleEndian, &losslessID); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.LosslessID = lossless.ID(losslessID)
	return h, nil
}
