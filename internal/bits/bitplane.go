package bits

// Sign is the ternary sign bucket a quantized code is sorted into before
// bit-plane decomposition: negative, zero or positive. The unpredictable
// sentinel is folded into SignZero by the caller, with its raw value
// appended to the unpredictable list (see quantize.Quantizer).
type Sign uint8

// Sign buckets, packed 2 bits wide in the dense sign stream.
const (
	SignNegative Sign = 0
	SignZero     Sign = 1
	SignPositive Sign = 2
)

// SignOf returns the ternary sign bucket of code.
func SignOf(code int32) Sign {
	switch {
	case code < 0:
		return SignNegative
	case code > 0:
		return SignPositive
	default:
		return SignZero
	}
}

// WriteSign packs a 2-bit sign value.
func (w *Writer) WriteSign(s Sign) error {
	return w.WriteBits(uint64(s), 2)
}

// ReadSign unpacks a 2-bit sign value.
func (r *Reader) ReadSign() (Sign, error) {
	x, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return Sign(x), nil
}

// PlaneWidths validates that widths sum to 32, as required of the
// progressive pipeline's bitplaneWidths configuration option.
func PlaneWidths(widths []uint8) bool {
	var sum int
	for _, w := range widths {
		sum += int(w)
	}
	return sum == 32
}

// Plane extracts bit-plane b (0-indexed, widths[0] is the coarsest/highest
// plane) from the magnitude of a quantized code, given the cumulative shift
// of all wider planes already extracted.
//
//	shift = 32 - sum(widths[0:b+1])
func Plane(magnitude uint32, width uint8, shift uint8) uint32 {
	mask := uint32(1)<<width - 1
	return (magnitude >> shift) & mask
}

// WritePlane emits a single bit-plane value using the densest representation
// for its width: a raw 2-bit field for width-2 planes (matching the sign
// stream's packing), a fixed-width field otherwise. Wide planes are expected
// to be Huffman coded by the caller instead of calling WritePlane directly;
// this helper exists for the width-2 planes and for tests.
func (w *Writer) WritePlane(v uint32, width uint8) error {
	return w.WriteBits(uint64(v), width)
}

// ReadPlane is the reader counterpart of WritePlane.
func (r *Reader) ReadPlane(width uint8) (uint32, error) {
	x, err := r.Read(width)
	if err != nil {
		return 0, err
	}
	return uint32(x), nil
}

// DefaultPlaneWidths is the default bit-plane width schedule, coarsest
// plane first.
var DefaultPlaneWidths = []uint8{24, 4, 2, 2}

// Shifts returns, for each plane in widths, the right-shift that isolates
// that plane's bits from a 32-bit magnitude, most significant plane first.
func Shifts(widths []uint8) []uint8 {
	shifts := make([]uint8, len(widths))
	var cum uint8
	for i, w := range widths {
		cum += w
		shifts[i] = 32 - cum
	}
	return shifts
}
