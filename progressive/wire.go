package progressive

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/huffman"
	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/quantize"
)

// Magic identifies a progressive-pipeline stream.
var Magic = [4]byte{'S', 'Z', 'P', '1'}

// anchorCoords enumerates the coarsest grid: every axis coordinate a
// multiple of the coarsest stride 2^L, cartesian product across axes. Any
// other coordinate is an odd multiple of some finer stride and is covered
// by exactly one level's interpolation sweep; only these cells are never
// predicted, so they are carried raw in the header blob.
func anchorCoords(dims []int, coarseStride int) [][]int {
	n := len(dims)
	axesPositions := make([][]int, n)
	for i, d := range dims {
		var pos []int
		for p := 0; p < d; p += coarseStride {
			pos = append(pos, p)
		}
		axesPositions[i] = pos
	}
	var out [][]int
	cur := make([]int, n)
	var rec func(i int)
	rec = func(i int) {
		if i == n {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for _, p := range axesPositions[i] {
			cur[i] = p
			rec(i + 1)
		}
	}
	rec(0)
	return out
}

// sealBlob lossless-compresses raw and length-prefixes it (rawLen,
// sealedLen, bytes), the same envelope every blob in the stream uses.
func sealBlob(w *bytes.Buffer, raw []byte, codec lossless.Codec) error {
	sealed, err := codec.Compress(raw)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(raw))); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(sealed))); err != nil {
		return errutil.Err(err)
	}
	if _, err := w.Write(sealed); err != nil {
		return errutil.Err(err)
	}
	return nil
}

func unsealBlob(r *bytes.Reader, codec lossless.Codec) ([]byte, error) {
	var rawLen, sealedLen uint64
	if err := binary.Read(r, binary.LittleEndian, &rawLen); err != nil {
		return nil, errutil.Err(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &sealedLen); err != nil {
		return nil, errutil.Err(err)
	}
	sealed := make([]byte, sealedLen)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return nil, errutil.Err(err)
	}
	return codec.Decompress(sealed, int(rawLen))
}

// levelBlobBody serializes one coarse level's quantizer state and
// Huffman-coded quant stream into a single byte-aligned-then-bit-packed
// buffer, the same shape blockcompressor uses for its own body.
func levelBlobBody[T float32 | float64](q *quantize.Quantizer[T], codes []int32) ([]byte, error) {
	var buf bytes.Buffer
	if err := q.Save(&buf); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(codes))); err != nil {
		return nil, errutil.Err(err)
	}
	// A coarse level can predict no cells at all (every axis too short for
	// its stride); the blob then carries just the empty count.
	if len(codes) == 0 {
		return buf.Bytes(), nil
	}
	bw := bits.NewWriter(&buf)
	enc, err := huffman.PreprocessEncode(codes, nil)
	if err != nil {
		return nil, err
	}
	if err := enc.Save(bw); err != nil {
		return nil, err
	}
	if err := enc.Encode(codes, bw); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, errutil.Err(err)
	}
	return buf.Bytes(), nil
}

func loadLevelBlobBody[T float32 | float64](raw []byte) (*quantize.Quantizer[T], []int32, error) {
	r := bytes.NewReader(raw)
	q, err := quantize.Load[T](r)
	if err != nil {
		return nil, nil, err
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, nil, errutil.Err(err)
	}
	if n == 0 {
		return q, nil, nil
	}
	br := bits.NewReader(r)
	enc, err := huffman.Load(br)
	if err != nil {
		return nil, nil, err
	}
	codes, err := enc.Decode(br, int(n))
	if err != nil {
		return nil, nil, err
	}
	return q, codes, nil
}

// signBlobBody serializes the finest level's quantizer state, code count
// and the dense 2-bit sign-ternary stream. The sentinel code lands in the
// zero bucket; its full-radius magnitude in the bit planes tells the
// decoder to consume an unpredictable value instead of taking the
// prediction.
func signBlobBody[T float32 | float64](q *quantize.Quantizer[T], codes []int32) ([]byte, error) {
	var buf bytes.Buffer
	if err := q.Save(&buf); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(codes))); err != nil {
		return nil, errutil.Err(err)
	}
	bw := bits.NewWriter(&buf)
	for _, c := range codes {
		s := bits.SignOf(c)
		if c == q.Sentinel() {
			s = bits.SignZero
		}
		if err := bw.WriteSign(s); err != nil {
			return nil, errutil.Err(err)
		}
	}
	if err := bw.Close(); err != nil {
		return nil, errutil.Err(err)
	}
	return buf.Bytes(), nil
}

func loadSignBlobBody[T float32 | float64](raw []byte) (*quantize.Quantizer[T], []bits.Sign, error) {
	r := bytes.NewReader(raw)
	q, err := quantize.Load[T](r)
	if err != nil {
		return nil, nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, errutil.Err(err)
	}
	br := bits.NewReader(r)
	signs := make([]bits.Sign, count)
	for i := range signs {
		s, err := br.ReadSign()
		if err != nil {
			return nil, nil, errutil.Err(err)
		}
		signs[i] = s
	}
	return q, signs, nil
}

// planeBlobBody serializes one bit-plane: widths of 2 use the dense packed
// form, wider planes are Huffman coded.
func planeBlobBody(values []uint32, width uint8) ([]byte, error) {
	var buf bytes.Buffer
	if len(values) == 0 {
		return buf.Bytes(), nil
	}
	bw := bits.NewWriter(&buf)
	if width == 2 {
		for _, v := range values {
			if err := bw.WritePlane(v, width); err != nil {
				return nil, errutil.Err(err)
			}
		}
		if err := bw.Close(); err != nil {
			return nil, errutil.Err(err)
		}
		return buf.Bytes(), nil
	}
	symbols := make([]int32, len(values))
	for i, v := range values {
		symbols[i] = int32(v)
	}
	enc, err := huffman.PreprocessEncode(symbols, nil)
	if err != nil {
		return nil, err
	}
	if err := enc.Save(bw); err != nil {
		return nil, err
	}
	if err := enc.Encode(symbols, bw); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, errutil.Err(err)
	}
	return buf.Bytes(), nil
}

func loadPlaneBlobBody(raw []byte, width uint8, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	r := bytes.NewReader(raw)
	br := bits.NewReader(r)
	if width == 2 {
		out := make([]uint32, n)
		for i := range out {
			v, err := br.ReadPlane(width)
			if err != nil {
				return nil, errutil.Err(err)
			}
			out[i] = v
		}
		return out, nil
	}
	enc, err := huffman.Load(br)
	if err != nil {
		return nil, err
	}
	symbols, err := enc.Decode(br, n)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i, s := range symbols {
		out[i] = uint32(s)
	}
	return out, nil
}
