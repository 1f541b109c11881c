// Package quantize implements the linear quantizer that maps a predictor's
// residual to a bounded signed integer, enforcing the absolute error bound
// and capturing raw "unpredictable" values when the residual falls outside
// the representable range.
//
// Quantized codes lie in [-R+1, R-1] for predictable cells; the sentinel
// -R marks "look up the next unpredictable raw value". Code 0 means the
// prediction is already within eps; code k means prediction +/- k*(2*eps).
package quantize

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/szerr"
)

// StrictBoundChecks gates a per-cell post-condition check that the
// quantized value stays within the error bound, aborting on violation.
// Tests enable it; the CLI's release path leaves it off to avoid paying
// for the check on every cell.
var StrictBoundChecks = true

// Float is the element type constraint shared across the pipeline.
type Float interface {
	~float32 | ~float64
}

// Quantizer holds the absolute error bound, the code radius and the
// append-only list of unpredictable raw values captured during a pass. It is
// stateless across calls apart from that list and its configuration, and is
// serializable via Save/Load.
type Quantizer[T Float] struct {
	Eps    float64
	Radius int32 // R, half the code alphabet; default 32768.

	unpredictable []T
}

// New returns a quantizer with the given absolute error bound and radius.
func New[T Float](eps float64, radius int32) *Quantizer[T] {
	return &Quantizer[T]{Eps: eps, Radius: radius}
}

// Sentinel is the reserved code meaning "look up the next unpredictable raw
// value".
func (q *Quantizer[T]) Sentinel() int32 {
	return -q.Radius
}

// Unpredictable returns the unpredictable values captured so far, in capture
// order.
func (q *Quantizer[T]) Unpredictable() []T {
	return q.unpredictable
}

// roundHalfAwayFromZero rounds x to the nearest integer, ties away from
// zero. math.Round already has that tie behaviour; the wrapper names it
// because the codec requires it on both sides of the wire.
func roundHalfAwayFromZero(x float64) float64 {
	return math.Round(x)
}

// QuantizeAndOverwrite computes diff = *cell - pred, quantizes it to an
// integer code, and overwrites *cell with the value the decompressor will
// reconstruct from that code, so that later predictions in the same pass
// see exactly what decompression will see.
//
// If the magnitude of the quantized code would reach the radius, *cell is
// instead appended to the unpredictable list, overwritten with pred, and the
// sentinel is returned.
func (q *Quantizer[T]) QuantizeAndOverwrite(cell *T, pred float64) int32 {
	diff := float64(*cell) - pred
	step := 2 * q.Eps
	qf := roundHalfAwayFromZero(diff / step)

	code := int32(qf)
	if qf >= float64(q.Radius) || qf <= -float64(q.Radius) {
		q.unpredictable = append(q.unpredictable, *cell)
		*cell = T(pred)
		return q.Sentinel()
	}

	recovered := pred + float64(code)*step
	*cell = T(recovered)

	if StrictBoundChecks {
		if math.Abs(float64(*cell)-(pred+diff)) > q.Eps+1e-9 {
			panic(szerr.New(szerr.ErrorBoundViolation,
				"quantized cell exceeds error bound: |%.17g - %.17g| > eps=%.17g", *cell, pred+diff, q.Eps))
		}
	}
	return code
}

// nextUnpredictable pops and returns the next captured unpredictable value,
// in the same order it was appended during compression.
func (q *Quantizer[T]) nextUnpredictable() (T, error) {
	if len(q.unpredictable) == 0 {
		return 0, szerr.New(szerr.CorruptStream, "unpredictable value requested but none remain")
	}
	v := q.unpredictable[0]
	q.unpredictable = q.unpredictable[1:]
	return v, nil
}

// Recover reconstructs a cell's value from a prediction and a quantized
// code. If code is the sentinel, the next unpredictable raw value is
// consumed instead.
func (q *Quantizer[T]) Recover(pred float64, code int32) (T, error) {
	if code == q.Sentinel() {
		return q.nextUnpredictable()
	}
	return T(pred + float64(code)*2*q.Eps), nil
}

// Save serializes eps, R and the unpredictable vector (count-prefixed raw
// values) to buf.
func (q *Quantizer[T]) Save(buf io.Writer) error {
	if err := binary.Write(buf, binary.LittleEndian, q.Eps); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(buf, binary.LittleEndian, q.Radius); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(buf, binary.LittleEndian, uint64(len(q.unpredictable))); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(buf, binary.LittleEndian, q.unpredictable); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// Load deserializes a quantizer's state from buf, replacing eps, R and the
// unpredictable vector.
func Load[T Float](buf io.Reader) (*Quantizer[T], error) {
	q := &Quantizer[T]{}
	if err := binary.Read(buf, binary.LittleEndian, &q.Eps); err != nil {
		return nil, errutil.Err(err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &q.Radius); err != nil {
		return nil, errutil.Err(err)
	}
	var n uint64
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, errutil.Err(err)
	}
	q.unpredictable = make([]T, n)
	if n > 0 {
		if err := binary.Read(buf, binary.LittleEndian, q.unpredictable); err != nil {
			return nil, errutil.Err(err)
		}
	}
	return q, nil
}
