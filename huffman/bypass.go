package huffman

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
)

// Bypass is the non-entropy-coded alternative to the canonical Huffman
// stream: every symbol is written
// as a fixed-width two's complement field wide enough to hold the largest
// magnitude in the stream. It trades compression ratio for a codec with no
// frequency table to build or ship, useful when the quant stream is already
// close to uniform (e.g. after the progressive pipeline's bit-plane split).
type Bypass struct {
	Width uint8
}

// NewBypass returns a Bypass encoder sized to hold every value in symbols.
func NewBypass(symbols []int32) *Bypass {
	var width uint8 = 1
	for _, s := range symbols {
		w := widthFor(s)
		if w > width {
			width = w
		}
	}
	return &Bypass{Width: width}
}

// widthFor returns the number of bits (including sign) needed to represent s
// in two's complement.
func widthFor(s int32) uint8 {
	v := int64(s)
	if v < 0 {
		v = ^v
	}
	var w uint8 = 1
	for v > 0 {
		w++
		v >>= 1
	}
	return w
}

// Save writes the field width to w.
func (b *Bypass) Save(w *bits.Writer) error {
	return errutil.Err(w.WriteBits(uint64(b.Width), 8))
}

// LoadBypass reads the field width saved by Save.
func LoadBypass(r *bits.Reader) (*Bypass, error) {
	x, err := r.Read(8)
	if err != nil {
		return nil, errutil.Err(err)
	}
	return &Bypass{Width: uint8(x)}, nil
}

// Encode writes each symbol as a fixed Width-bit two's complement field.
func (b *Bypass) Encode(symbols []int32, w *bits.Writer) error {
	mask := uint64(1)<<b.Width - 1
	for _, s := range symbols {
		if err := w.WriteBits(uint64(s)&mask, b.Width); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// Decode reads n fixed-width two's complement fields from r.
func (b *Bypass) Decode(r *bits.Reader, n int) ([]int32, error) {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		x, err := r.Read(b.Width)
		if err != nil {
			return nil, errutil.Err(err)
		}
		out[i] = int32(bits.IntN(x, uint(b.Width)))
	}
	return out, nil
}
