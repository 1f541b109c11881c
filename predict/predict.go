// Package predict implements the predictor family driven by the block
// compressor: Lorenzo order 1 and 2, a per-block linear regression, and a
// Composed predictor that picks the best of a configured set per block.
//
// Every predictor follows the same contract: Precompress optionally derives
// per-block state and may decline the block; Predict returns the predicted
// value at a global index given already-decoded neighbours; Compress and
// Decompress walk the block pushing/pulling quantized codes; Save/Load
// serialize any persistent state. Dispatch among predictors happens once per
// block, never once per cell.
package predict

import (
	"io"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/quantize"
)

// ID identifies a predictor variant in the wire format's predictor mask and
// the Composed predictor's per-block tag byte.
type ID uint8

const (
	IDLorenzo1   ID = 0
	IDLorenzo2   ID = 1
	IDRegression ID = 2
)

// Predictor is the common contract every predictor variant implements, for
// a fixed element type T.
type Predictor[T float32 | float64] interface {
	// Precompress computes any per-block state and reports whether the
	// predictor can be used for this block at all (e.g. regression declines
	// blocks with any axis length <= 1). A predictor whose Predict needs
	// the block origin (Regression) also records it here; Lorenzo's
	// Precompress does nothing and always accepts.
	Precompress(v *ndarray.View[T], blk ndarray.Block) bool
	// SetOrigin establishes the block a subsequent Load/Predict/Decompress
	// applies to, without requiring array data (unlike Precompress, which
	// only runs on the encode side once the block is available to fit
	// against). The block compressor calls it before Load on the decode
	// path.
	SetOrigin(blk ndarray.Block)
	// Predict returns the predicted value at the given global index, which
	// must only depend on cells that compress/decompress has already
	// visited.
	Predict(v *ndarray.View[T], idx []int) float64
	// Compress iterates the block in row-major order, quantizing each cell
	// against Predict and appending the resulting code to codes.
	Compress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *[]int32)
	// Decompress iterates the block in the same order as Compress,
	// reconstructing each cell from the next code.
	Decompress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *CodeCursor) error
	// Save serializes any persistent predictor state.
	Save(w io.Writer) error
	// Load deserializes persistent predictor state saved by Save.
	Load(r io.Reader) error
}

// CodeCursor is a read cursor over a flat quant code stream, shared by every
// predictor's Decompress so that the block compressor can hand a single
// stream to whichever predictor decoded each block.
type CodeCursor struct {
	Codes []int32
	pos   int
}

// NewCodeCursor wraps codes for sequential consumption.
func NewCodeCursor(codes []int32) *CodeCursor {
	return &CodeCursor{Codes: codes}
}

// Next returns the next code and advances the cursor.
func (c *CodeCursor) Next() int32 {
	v := c.Codes[c.pos]
	c.pos++
	return v
}
