// Package huffman implements the canonical prefix code used to entropy-code
// the quantized residual stream: frequency-driven code-length assignment via
// a Huffman tree, canonical code construction, and an MSB-first bit-packed
// encode/decode pair.
package huffman

import (
	"container/heap"
	"sort"

	"github.com/mewkiz/pkg/errutil"

	"github.com/scidata-compress/sz/internal/bits"
	"github.com/scidata-compress/sz/szerr"
)

// node is a Huffman tree node. Leaves carry a symbol; internal nodes carry
// two children. Ties in frequency are broken by insertion order (seq), so
// that tree construction is deterministic across runs; compressing the
// same array twice must produce byte-identical streams.
type node struct {
	freq        uint64
	seq         int
	sym         int32
	isLeaf      bool
	left, right *node
}

// priorityQueue orders nodes by (freq asc, seq asc), giving Huffman's
// algorithm a deterministic tie-break.
type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].freq != pq[j].freq {
		return pq[i].freq < pq[j].freq
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*node)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// symLen is a (symbol, code length) pair, the unit the codebook is saved
// and loaded as.
type symLen struct {
	sym int32
	len uint8
}

// Encoder holds a canonical Huffman codebook: the alphabet, sorted by
// (code_length asc, symbol asc), and the resulting canonical codes. The same
// ordering is used to rebuild the table after Load, so a decoder constructed
// from a saved codebook reproduces the encoder's codes exactly.
type Encoder struct {
	symLens []symLen
	codes   map[int32]code
	maxLen  uint8
}

type code struct {
	bits uint64
	len  uint8
}

// PreprocessEncode counts frequencies over symbols (unless externalFreqs is
// supplied), builds the Huffman tree to obtain code lengths, and converts
// them to canonical codes.
func PreprocessEncode(symbols []int32, externalFreqs map[int32]uint64) (*Encoder, error) {
	freqs := externalFreqs
	if freqs == nil {
		freqs = make(map[int32]uint64, len(symbols))
		for _, s := range symbols {
			freqs[s]++
		}
	}
	if len(freqs) == 0 {
		return nil, szerr.New(szerr.EncoderError, "cannot build a Huffman code over an empty alphabet")
	}

	lens := codeLengths(freqs)
	return buildCanonical(lens)
}

// codeLengths runs the Huffman tree construction (priority queue on
// frequency, ties broken by insertion order) and returns the code length of
// every symbol.
func codeLengths(freqs map[int32]uint64) map[int32]uint8 {
	// Deterministic insertion order: sort symbols ascending so that two runs
	// over the same frequency map produce the same sequence numbers.
	syms := make([]int32, 0, len(freqs))
	for s := range freqs {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })

	pq := make(priorityQueue, 0, len(syms))
	seq := 0
	for _, s := range syms {
		pq = append(pq, &node{freq: freqs[s], seq: seq, sym: s, isLeaf: true})
		seq++
	}
	heap.Init(&pq)

	if len(pq) == 1 {
		only := pq[0]
		return map[int32]uint8{only.sym: 1}
	}

	for len(pq) > 1 {
		a := heap.Pop(&pq).(*node)
		b := heap.Pop(&pq).(*node)
		parent := &node{freq: a.freq + b.freq, seq: seq, left: a, right: b}
		seq++
		heap.Push(&pq, parent)
	}

	root := pq[0]
	lens := make(map[int32]uint8)
	var walk func(n *node, depth uint8)
	walk = func(n *node, depth uint8) {
		if n.isLeaf {
			if depth == 0 {
				depth = 1
			}
			lens[n.sym] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)
	return lens
}

// buildCanonical converts a symbol->length map into canonical codes: symbols
// sorted by (length asc, symbol asc) are assigned consecutive codes, with a
// left-shift whenever length increases.
func buildCanonical(lens map[int32]uint8) (*Encoder, error) {
	symLens := make([]symLen, 0, len(lens))
	var maxLen uint8
	for s, l := range lens {
		symLens = append(symLens, symLen{sym: s, len: l})
		if l > maxLen {
			maxLen = l
		}
	}
	sort.Slice(symLens, func(i, j int) bool {
		if symLens[i].len != symLens[j].len {
			return symLens[i].len < symLens[j].len
		}
		return symLens[i].sym < symLens[j].sym
	})

	codes := make(map[int32]code, len(symLens))
	var c uint64
	var prevLen uint8
	for i, sl := range symLens {
		if i > 0 {
			c <<= sl.len - prevLen
		}
		codes[sl.sym] = code{bits: c, len: sl.len}
		c++
		prevLen = sl.len
	}
	return &Encoder{symLens: symLens, codes: codes, maxLen: maxLen}, nil
}

// Save writes the alphabet size, then for each (symbol, code_length) pair,
// to w.
func (e *Encoder) Save(w *bits.Writer) error {
	if err := w.WriteBits(uint64(len(e.symLens)), 32); err != nil {
		return errutil.Err(err)
	}
	for _, sl := range e.symLens {
		if err := w.WriteBits(uint64(uint32(sl.sym)), 32); err != nil {
			return errutil.Err(err)
		}
		if err := w.WriteBits(uint64(sl.len), 8); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// Load rebuilds a canonical code table from a saved (symbol, length) list.
func Load(r *bits.Reader) (*Encoder, error) {
	n, err := r.Read(32)
	if err != nil {
		return nil, errutil.Err(err)
	}
	if n == 0 {
		return nil, szerr.New(szerr.EncoderError, "Huffman codebook has an empty alphabet")
	}
	lens := make(map[int32]uint8, n)
	for i := uint64(0); i < n; i++ {
		symBits, err := r.Read(32)
		if err != nil {
			return nil, errutil.Err(err)
		}
		lenBits, err := r.Read(8)
		if err != nil {
			return nil, errutil.Err(err)
		}
		lens[int32(uint32(symBits))] = uint8(lenBits)
	}
	return buildCanonical(lens)
}

// Encode appends the code of each symbol to w, MSB-first.
func (e *Encoder) Encode(symbols []int32, w *bits.Writer) error {
	for _, s := range symbols {
		c, ok := e.codes[s]
		if !ok {
			return szerr.New(szerr.EncoderError, "symbol %d not present in Huffman codebook", s)
		}
		if err := w.WriteBits(c.bits, c.len); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// decodeNode is a reconstructed binary-trie node used only for decoding.
type decodeNode struct {
	sym         int32
	isLeaf      bool
	left, right *decodeNode
}

func (e *Encoder) trie() *decodeNode {
	root := &decodeNode{}
	for _, sl := range e.symLens {
		c := e.codes[sl.sym]
		n := root
		for b := int(sl.len) - 1; b >= 0; b-- {
			bit := (c.bits >> uint(b)) & 1
			if bit == 0 {
				if n.left == nil {
					n.left = &decodeNode{}
				}
				n = n.left
			} else {
				if n.right == nil {
					n.right = &decodeNode{}
				}
				n = n.right
			}
		}
		n.isLeaf = true
		n.sym = sl.sym
	}
	return root
}

// Decode reads exactly n symbols from r, traversing the canonical code trie
// one bit at a time for each.
func (e *Encoder) Decode(r *bits.Reader, n int) ([]int32, error) {
	root := e.trie()
	out := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		node := root
		for !node.isLeaf {
			bit, err := r.Read(1)
			if err != nil {
				return nil, errutil.Err(err)
			}
			if bit == 0 {
				node = node.left
			} else {
				node = node.right
			}
			if node == nil {
				return nil, szerr.New(szerr.EncoderError, "invalid Huffman prefix while decoding symbol %d/%d", i, n)
			}
		}
		out = append(out, node.sym)
	}
	return out, nil
}
