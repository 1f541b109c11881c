package progressive

import (
	"bytes"
	"encoding/binary"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/quantize"
	"github.com/scidata-compress/sz/szerr"
)

// Header carries everything needed to set up decoding before any blob is
// touched: shape, element type and the options that determine the
// level/bit-plane schedule.
type Header struct {
	ElemType     uint8 // 0 = float32, 1 = float64
	Dims         []int
	Opt          Options
	AnchorDims   []int // per-axis anchor grid length, for anchor value layout
	AnchorValues []byte
}

// writeHeaderBlob serializes the header (uncompressed: it must be readable
// before any lossless codec choice is even parsed) as blob 0.
func writeHeaderBlob(w *bytes.Buffer, h Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.ElemType); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(h.Dims))); err != nil {
		return errutil.Err(err)
	}
	for _, d := range h.Dims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return errutil.Err(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, h.Opt.Eps); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.Opt.Radius); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.Opt.EBRatio); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(h.Opt.Interpolator)); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(h.Opt.Direction)); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(h.Opt.InterpDimLimit)); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(h.Opt.BitplaneWidths))); err != nil {
		return errutil.Err(err)
	}
	for _, bw := range h.Opt.BitplaneWidths {
		if err := binary.Write(w, binary.LittleEndian, bw); err != nil {
			return errutil.Err(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(h.Opt.Lossless)); err != nil {
		return errutil.Err(err)
	}
	for _, d := range h.AnchorDims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return errutil.Err(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(h.AnchorValues))); err != nil {
		return errutil.Err(err)
	}
	if _, err := w.Write(h.AnchorValues); err != nil {
		return errutil.Err(err)
	}
	return nil
}

func readHeaderBlob(r *bytes.Reader) (Header, error) {
	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil {
		return Header{}, errutil.Err(err)
	}
	if magic != Magic {
		return Header{}, szerr.New(szerr.CorruptStream, "bad progressive magic %q, want %q", magic, Magic)
	}
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.ElemType); err != nil {
		return Header{}, errutil.Err(err)
	}
	var ndims uint8
	if err := binary.Read(r, binary.LittleEndian, &ndims); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Dims = make([]int, ndims)
	for i := range h.Dims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return Header{}, errutil.Err(err)
		}
		h.Dims[i] = int(d)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Opt.Eps); err != nil {
		return Header{}, errutil.Err(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Opt.Radius); err != nil {
		return Header{}, errutil.Err(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Opt.EBRatio); err != nil {
		return Header{}, errutil.Err(err)
	}
	var interp uint8
	if err := binary.Read(r, binary.LittleEndian, &interp); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Opt.Interpolator = Interpolator(interp)
	var direction, dimLimit uint32
	if err := binary.Read(r, binary.LittleEndian, &direction); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Opt.Direction = int(direction)
	if err := binary.Read(r, binary.LittleEndian, &dimLimit); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Opt.InterpDimLimit = int(dimLimit)
	var nwidths uint8
	if err := binary.Read(r, binary.LittleEndian, &nwidths); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Opt.BitplaneWidths = make([]uint8, nwidths)
	for i := range h.Opt.BitplaneWidths {
		if err := binary.Read(r, binary.LittleEndian, &h.Opt.BitplaneWidths[i]); err != nil {
			return Header{}, errutil.Err(err)
		}
	}
	var losslessID uint8
	if err := binary.Read(r, binary.LittleEndian, &losslessID); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.Opt.Lossless = lossless.ID(losslessID)
	h.AnchorDims = make([]int, ndims)
	for i := range h.AnchorDims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return Header{}, errutil.Err(err)
		}
		h.AnchorDims[i] = int(d)
	}
	var anchorLen uint32
	if err := binary.Read(r, binary.LittleEndian, &anchorLen); err != nil {
		return Header{}, errutil.Err(err)
	}
	h.AnchorValues = make([]byte, anchorLen)
	if _, err := r.Read(h.AnchorValues); err != nil {
		return Header{}, errutil.Err(err)
	}
	return h, nil
}

// Compress runs the full progressive pipeline over v and returns the
// serialized blob sequence: header, L-1 coarse level blobs, one sign blob
// and len(BitplaneWidths) bit-plane blobs for the finest level.
func Compress[T float32 | float64](opt Options, v *ndarray.View[T]) ([]byte, error) {
	if !bits.PlaneWidths(opt.BitplaneWidths) {
		return nil, szerr.New(szerr.ConfigError, "bit-plane widths %v do not sum to 32", opt.BitplaneWidths)
	}
	dims := v.Dims
	n := len(dims)
	L := levels(dims)
	perm := permutation(n, opt.Direction)
	coarseStride := 1 << uint(L)

	anchors := anchorCoords(dims, coarseStride)
	anchorDims := make([]int, n)
	for i, d := range dims {
		anchorDims[i] = (d + coarseStride - 1) / coarseStride
	}
	var anchorBuf bytes.Buffer
	for _, a := range anchors {
		if err := binary.Write(&anchorBuf, binary.LittleEndian, float64(v.At(a))); err != nil {
			return nil, errutil.Err(err)
		}
	}

	codec, err := lossless.New(opt.Lossless)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	h := Header{
		ElemType:     elemTypeID[T](),
		Dims:         dims,
		Opt:          opt,
		AnchorDims:   anchorDims,
		AnchorValues: anchorBuf.Bytes(),
	}
	if err := writeHeaderBlob(&out, h); err != nil {
		return nil, err
	}

	for lvl := L; lvl >= 2; lvl-- {
		s := 1 << uint(lvl-1)
		eps := errorBoundFor(lvl, opt)
		q := quantize.New[T](eps, opt.Radius)
		var codes []int32
		levelPass(v, perm, s, opt.Interpolator, q, &codes)
		body, err := levelBlobBody(q, codes)
		if err != nil {
			return nil, err
		}
		if err := sealBlob(&out, body, codec); err != nil {
			return nil, err
		}
	}

	finestEps := errorBoundFor(1, opt)
	fq := quantize.New[T](finestEps, opt.Radius)
	var finestCodes []int32
	levelPass(v, perm, 1, opt.Interpolator, fq, &finestCodes)

	signBody, err := signBlobBody(fq, finestCodes)
	if err != nil {
		return nil, err
	}
	if err := sealBlob(&out, signBody, codec); err != nil {
		return nil, err
	}

	shifts := bits.Shifts(opt.BitplaneWidths)
	for i, width := range opt.BitplaneWidths {
		values := make([]uint32, len(finestCodes))
		for j, c := range finestCodes {
			values[j] = magnitudeOf(c, opt.Radius, width, shifts[i])
		}
		body, err := planeBlobBody(values, width)
		if err != nil {
			return nil, err
		}
		if err := sealBlob(&out, body, codec); err != nil {
			return nil, err
		}
	}

	return out.Bytes(), nil
}

// magnitudeOf returns the bit-plane slice of c's magnitude, mapping the
// sentinel code to a magnitude of radius (strictly larger than any valid
// code's magnitude, letting the decoder distinguish "true zero" from
// "unpredictable").
func magnitudeOf(c int32, radius int32, width uint8, shift uint8) uint32 {
	mag := uint32(c)
	if c < 0 {
		mag = uint32(-c)
	}
	if c == -radius {
		mag = uint32(radius)
	}
	return bits.Plane(mag, width, shift)
}

func elemTypeID[T float32 | float64]() uint8 {
	var zero T
	if _, ok := interface{}(zero).(float32); ok {
		return 0
	}
	return 1
}
