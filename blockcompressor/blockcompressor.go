package blockcompressor

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/mewkiz/pkg/dbg"
	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/huffman"
	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
	"github.com/scidata-compress/sz/predict"
	"github.com/scidata-compress/sz/quantize"
	"github.com/scidata-compress/sz/szerr"
)

func init() {
	dbg.Debug = false
}

// Options configures a single Compress/Decompress call, independent of the
// config package so this package has no dependency on it.
type Options struct {
	Eps         float64
	Radius      int32
	BlockSize   int
	Predictors  []predict.ID
	EncoderKind uint8 // 0 = Huffman, 1 = Bypass
	Lossless    lossless.ID
}

const (
	encoderHuffman uint8 = 0
	encoderBypass  uint8 = 1
)

// buildPredictor constructs the Composed predictor trying every configured
// candidate, in order, for a fresh pass.
func buildPredictor[T float32 | float64](opt Options) *predict.Composed[T] {
	cands := make([]predict.Predictor[T], len(opt.Predictors))
	for i, id := range opt.Predictors {
		switch id {
		case predict.IDLorenzo1:
			cands[i] = predict.NewLorenzo[T](1)
		case predict.IDLorenzo2:
			cands[i] = predict.NewLorenzo[T](2)
		case predict.IDRegression:
			cands[i] = predict.NewRegression[T](opt.Eps, opt.BlockSize)
		}
	}
	return predict.NewComposed(opt.Predictors, cands)
}

// Compress runs the full block pipeline over v, returning the serialized
// stream (header + lossless-sealed payload).
func Compress[T float32 | float64](opt Options, v *ndarray.View[T]) ([]byte, error) {
	q := quantize.New[T](opt.Eps, opt.Radius)

	it := ndarray.NewBlockIterator(v.Dims, opt.BlockSize)
	// Built once per pass, not per block: the regression candidate's
	// previous-block coefficient state is only persistent across blocks if
	// the same predictor set is reused for the whole pass, reset to zero at
	// construction here.
	p := buildPredictor[T](opt)
	var codes []int32
	var blockBlobs [][]byte
	for {
		blk, ok := it.Next()
		if !ok {
			break
		}
		if !p.Precompress(v, blk) {
			return nil, szerr.New(szerr.PredictorInapplicable, "blockcompressor: no configured predictor accepted block %v", blk)
		}
		p.SetOrigin(blk)
		p.Compress(v, blk, q, &codes)
		var blobBuf bytes.Buffer
		if err := p.Save(&blobBuf); err != nil {
			return nil, errutil.Err(err)
		}
		blockBlobs = append(blockBlobs, blobBuf.Bytes())
	}

	var body bytes.Buffer
	if err := q.Save(&body); err != nil {
		return nil, errutil.Err(err)
	}
	if err := binary.Write(&body, binary.LittleEndian, uint32(len(blockBlobs))); err != nil {
		return nil, errutil.Err(err)
	}
	for _, blob := range blockBlobs {
		if err := binary.Write(&body, binary.LittleEndian, uint32(len(blob))); err != nil {
			return nil, errutil.Err(err)
		}
		if _, err := body.Write(blob); err != nil {
			return nil, errutil.Err(err)
		}
	}
	if err := binary.Write(&body, binary.LittleEndian, uint32(len(codes))); err != nil {
		return nil, errutil.Err(err)
	}

	bw := bits.NewWriter(&body)
	if opt.EncoderKind == encoderBypass {
		bp := huffman.NewBypass(codes)
		if err := bp.Save(bw); err != nil {
			return nil, errutil.Err(err)
		}
		if err := bp.Encode(codes, bw); err != nil {
			return nil, errutil.Err(err)
		}
	} else {
		enc, err := huffman.PreprocessEncode(codes, nil)
		if err != nil {
			return nil, errutil.Err(err)
		}
		if err := enc.Save(bw); err != nil {
			return nil, errutil.Err(err)
		}
		if err := enc.Encode(codes, bw); err != nil {
			return nil, errutil.Err(err)
		}
	}
	if err := bw.Close(); err != nil {
		return nil, errutil.Err(err)
	}

	codec, err := lossless.New(opt.Lossless)
	if err != nil {
		return nil, errutil.Err(err)
	}
	sealed, err := codec.Compress(body.Bytes())
	if err != nil {
		return nil, errutil.Err(err)
	}

	var out bytes.Buffer
	h := Header{
		ElemType:    elemTypeOf[T](),
		Dims:        v.Dims,
		Eps:         opt.Eps,
		Radius:      opt.Radius,
		BlockSize:   opt.BlockSize,
		Predictors:  opt.Predictors,
		EncoderKind: opt.EncoderKind,
		LosslessID:  opt.Lossless,
	}
	if err := writeHeader(&out, h); err != nil {
		return nil, errutil.Err(err)
	}
	if err := binary.Write(&out, binary.LittleEndian, uint64(body.Len())); err != nil {
		return nil, errutil.Err(err)
	}
	if err := binary.Write(&out, binary.LittleEndian, uint64(len(sealed))); err != nil {
		return nil, errutil.Err(err)
	}
	if _, err := out.Write(sealed); err != nil {
		return nil, errutil.Err(err)
	}
	return out.Bytes(), nil
}

func elemTypeOf[T float32 | float64]() ElemType {
	var zero T
	switch interface{}(zero).(type) {
	case float32:
		return ElemFloat32
	default:
		return ElemFloat64
	}
}

// Decompress parses a stream produced by Compress and reconstructs the
// array, returning its header alongside the reconstructed view for callers
// that need to cross-check element type/dims before consuming the data.
func Decompress[T float32 | float64](data []byte) (*ndarray.View[T], Header, error) {
	r := bytes.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return nil, Header{}, err
	}

	var rawLen, sealedLen uint64
	if err := binary.Read(r, binary.LittleEndian, &rawLen); err != nil {
		return nil, Header{}, errutil.Err(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &sealedLen); err != nil {
		return nil, Header{}, errutil.Err(err)
	}
	sealed := make([]byte, sealedLen)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return nil, Header{}, errutil.Err(err)
	}

	codec, err := lossless.New(h.LosslessID)
	if err != nil {
		return nil, Header{}, err
	}
	body, err := codec.Decompress(sealed, int(rawLen))
	if err != nil {
		return nil, Header{}, err
	}

	br := bytes.NewReader(body)
	q, err := quantize.Load[T](br)
	if err != nil {
		return nil, Header{}, err
	}
	dbg.Println("unpredictable count:", len(q.Unpredictable()))

	var numBlocks uint32
	if err := binary.Read(br, binary.LittleEndian, &numBlocks); err != nil {
		return nil, Header{}, errutil.Err(err)
	}
	dbg.Println("block count:", numBlocks)

	opt := Options{Eps: h.Eps, Radius: h.Radius, BlockSize: h.BlockSize, Predictors: h.Predictors}
	it := ndarray.NewBlockIterator(h.Dims, h.BlockSize)
	// One predictor set for the whole pass, mirroring Compress: the
	// regression candidate's previous-block coefficient state must carry
	// across Load calls in the same block order Compress used.
	p := buildPredictor[T](opt)
	blocks := make([]ndarray.Block, 0, numBlocks)
	blobs := make([][]byte, 0, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		blk, ok := it.Next()
		if !ok {
			return nil, Header{}, errutil.Newf("blockcompressor: block iterator exhausted before %d blocks", numBlocks)
		}
		var blobLen uint32
		if err := binary.Read(br, binary.LittleEndian, &blobLen); err != nil {
			return nil, Header{}, errutil.Err(err)
		}
		blob := make([]byte, blobLen)
		if _, err := io.ReadFull(br, blob); err != nil {
			return nil, Header{}, errutil.Err(err)
		}
		blocks = append(blocks, blk)
		blobs = append(blobs, blob)
	}

	var numCodes uint32
	if err := binary.Read(br, binary.LittleEndian, &numCodes); err != nil {
		return nil, Header{}, errutil.Err(err)
	}
	dbg.Println("quant code count:", numCodes)

	bitsr := bits.NewReader(br)
	var codes []int32
	if h.EncoderKind == encoderBypass {
		bp, err := huffman.LoadBypass(bitsr)
		if err != nil {
			return nil, Header{}, err
		}
		codes, err = bp.Decode(bitsr, int(numCodes))
		if err != nil {
			return nil, Header{}, err
		}
	} else {
		enc, err := huffman.Load(bitsr)
		if err != nil {
			return nil, Header{}, err
		}
		codes, err = enc.Decode(bitsr, int(numCodes))
		if err != nil {
			return nil, Header{}, err
		}
	}

	n := 1
	for _, d := range h.Dims {
		n *= d
	}
	if int(numCodes) != n {
		return nil, Header{}, szerr.New(szerr.CorruptStream,
			"quant code count %d does not cover a %v array (%d cells)", numCodes, h.Dims, n)
	}
	v, err := ndarray.NewView[T](make([]T, n), h.Dims)
	if err != nil {
		return nil, Header{}, err
	}

	cursor := predict.NewCodeCursor(codes)
	for i, blk := range blocks {
		p.SetOrigin(blk)
		if err := p.Load(bytes.NewReader(blobs[i])); err != nil {
			return nil, Header{}, err
		}
		if err := p.Decompress(v, blk, q, cursor); err != nil {
			return nil, Header{}, err
		}
	}
	return v, h, nil
}
