package progressive

import (
	"bytes"
	"encoding/binary"

	"github.com/mewkiz/pkg/dbg"
	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/internal/ndarray"
	"github.com/scidata-compress/sz/lossless"
)

func init() {
	dbg.Debug = false
}

// Decompress reconstructs the array from every blob in data. A caller
// wanting a coarser, cheaper-to-transmit approximation can instead call
// DecompressPrefix with a blob budget.
func Decompress[T float32 | float64](data []byte) (*ndarray.View[T], Header, error) {
	return DecompressPrefix[T](data, -1)
}

// DecompressPrefix decodes at most maxBlobs blobs after the header (-1 for
// all of them), reconstructing a coarser approximation when fewer than the
// full L-1+1+len(BitplaneWidths) blobs are supplied. Missing low bit
// planes read as zero, so a truncated stream still decodes to an
// approximation with a correspondingly looser error bound.
func DecompressPrefix[T float32 | float64](data []byte, maxBlobs int) (*ndarray.View[T], Header, error) {
	r := bytes.NewReader(data)
	h, err := readHeaderBlob(r)
	if err != nil {
		return nil, Header{}, err
	}
	codec, err := lossless.New(h.Opt.Lossless)
	if err != nil {
		return nil, Header{}, err
	}

	dims := h.Dims
	n := len(dims)
	size := 1
	for _, d := range dims {
		size *= d
	}
	v, err := ndarray.NewView[T](make([]T, size), dims)
	if err != nil {
		return nil, Header{}, err
	}

	anchors := anchorCoords(dims, 1<<uint(levels(dims)))
	ar := bytes.NewReader(h.AnchorValues)
	for _, a := range anchors {
		var f float64
		if err := binary.Read(ar, binary.LittleEndian, &f); err != nil {
			return nil, Header{}, errutil.Err(err)
		}
		v.Data[v.Offset(a)] = T(f)
	}

	L := levels(dims)
	perm := permutation(n, h.Opt.Direction)

	blobsConsumed := 0
	withinBudget := func() bool { return maxBlobs < 0 || blobsConsumed < maxBlobs }

	for lvl := L; lvl >= 2; lvl-- {
		if !withinBudget() {
			return v, h, nil
		}
		raw, err := unsealBlob(r, codec)
		if err != nil {
			return nil, Header{}, err
		}
		blobsConsumed++
		q, codes, err := loadLevelBlobBody[T](raw)
		if err != nil {
			return nil, Header{}, err
		}
		s := 1 << uint(lvl-1)
		dbg.Println("level:", lvl, "stride:", s, "codes:", len(codes))
		if err := applyLevelPass(v, perm, s, h.Opt.Interpolator, q, codes); err != nil {
			return nil, Header{}, err
		}
	}

	if !withinBudget() {
		return v, h, nil
	}
	signRaw, err := unsealBlob(r, codec)
	if err != nil {
		return nil, Header{}, err
	}
	blobsConsumed++

	// The sign blob's code count isn't known until it's parsed, so peek its
	// embedded quantizer state first, then read the 2-bit stream using the
	// count written alongside it.
	signQ, signs, err := loadSignBlobBody[T](signRaw)
	if err != nil {
		return nil, Header{}, err
	}

	magnitudes := make([]uint32, len(signs))
	shifts := bits.Shifts(h.Opt.BitplaneWidths)
	for i, width := range h.Opt.BitplaneWidths {
		if !withinBudget() {
			break
		}
		raw, err := unsealBlob(r, codec)
		if err != nil {
			return nil, Header{}, err
		}
		blobsConsumed++
		planes, err := loadPlaneBlobBody(raw, width, len(signs))
		if err != nil {
			return nil, Header{}, err
		}
		dbg.Println("bit-plane:", i, "width:", width)
		for j, p := range planes {
			magnitudes[j] |= p << shifts[i]
		}
	}

	codes := make([]int32, len(signs))
	for i, sign := range signs {
		switch sign {
		case bits.SignZero:
			if magnitudes[i] == uint32(signQ.Radius) {
				codes[i] = -signQ.Radius
			} else {
				codes[i] = 0
			}
		case bits.SignNegative:
			codes[i] = -int32(magnitudes[i])
		case bits.SignPositive:
			codes[i] = int32(magnitudes[i])
		}
	}

	if err := applyLevelPass(v, perm, 1, h.Opt.Interpolator, signQ, codes); err != nil {
		return nil, Header{}, err
	}
	return v, h, nil
}
