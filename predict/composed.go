package predict

import (
	"encoding/binary"
	"io"

	"github.com/mewkiz/pkg/errutil"
	"gonum.org/v1/gonum/floats"

	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/quantize"
)

// Composed holds an ordered list of candidate predictors and, once per
// block, picks whichever candidate Precompress accepts with the lowest
// estimated prediction error, writing a one-byte tag recording the choice.
type Composed[T float32 | float64] struct {
	Candidates []Predictor[T]
	IDs        []ID

	chosen int
}

// NewComposed returns a Composed predictor trying each candidate, in order,
// against id for the wire tag.
func NewComposed[T float32 | float64](ids []ID, candidates []Predictor[T]) *Composed[T] {
	return &Composed[T]{Candidates: candidates, IDs: ids}
}

// estError samples the block (every cell, since blocks are already small),
// collects the prediction residual per cell, and reduces it with
// gonum/floats.Dot(d, d) (the sum-of-squares cost metric driving candidate
// selection).
func estError[T float32 | float64](v *ndarray.View[T], blk ndarray.Block, p Predictor[T]) float64 {
	r := ndarray.NewRange(blk.Begin, blk.End)
	var diffs []float64
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		pred := p.Predict(v, idx)
		diffs = append(diffs, float64(v.At(idx))-pred)
	}
	return floats.Dot(diffs, diffs)
}

// Precompress runs every candidate's own Precompress, keeping only those
// that accept the block, then picks the lowest estError among survivors.
func (c *Composed[T]) Precompress(v *ndarray.View[T], blk ndarray.Block) bool {
	best := -1
	bestErr := 0.0
	for i, cand := range c.Candidates {
		if !cand.Precompress(v, blk) {
			continue
		}
		e := estError(v, blk, cand)
		if best == -1 || e < bestErr {
			best = i
			bestErr = e
		}
	}
	if best == -1 {
		return false
	}
	c.chosen = best
	return true
}

func (c *Composed[T]) SetOrigin(blk ndarray.Block) {
	for _, cand := range c.Candidates {
		cand.SetOrigin(blk)
	}
}

func (c *Composed[T]) Predict(v *ndarray.View[T], idx []int) float64 {
	return c.Candidates[c.chosen].Predict(v, idx)
}

func (c *Composed[T]) Compress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *[]int32) {
	c.Candidates[c.chosen].Compress(v, blk, q, codes)
}

func (c *Composed[T]) Decompress(v *ndarray.View[T], blk ndarray.Block, q *quantize.Quantizer[T], codes *CodeCursor) error {
	return c.Candidates[c.chosen].Decompress(v, blk, q, codes)
}

// Save writes the chosen candidate's tag followed by its own Save output.
func (c *Composed[T]) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(c.IDs[c.chosen])); err != nil {
		return errutil.Err(err)
	}
	return c.Candidates[c.chosen].Save(w)
}

// Load reads the tag byte, selects the matching candidate, and delegates the
// rest of the load to it.
func (c *Composed[T]) Load(r io.Reader) error {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return errutil.Err(err)
	}
	for i, id := range c.IDs {
		if ID(tag) == id {
			c.chosen = i
			return c.Candidates[i].Load(r)
		}
	}
	return errutil.Newf("predict: unknown predictor tag %d", tag)
}
