// Package bits implements the bit-level primitives shared by the quantizer,
// entropy coder and progressive bit-plane codec: unary coding, ZigZag
// signed/unsigned folding, two's complement sign extension and fixed-width
// bit-plane slicing.
package bits

import (
	"io"

	"github.com/icza/bitio"
)

// Reader wraps a bitio.Reader with the handful of operations this module
// needs on top of plain fixed-width reads.
type Reader struct {
	*bitio.Reader
}

// NewReader returns a bit reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{Reader: bitio.NewReader(r)}
}

// Read reads the n lowest bits and returns them right-aligned in x.
func (r *Reader) Read(n uint8) (x uint64, err error) {
	return r.ReadBits(n)
}

// Writer wraps a bitio.Writer with the handful of operations this module
// needs on top of plain fixed-width writes.
type Writer struct {
	*bitio.Writer
}

// NewWriter returns a bit writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{Writer: bitio.NewWriter(w)}
}
