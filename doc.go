// Package sz implements a lossy compressor for dense N-D scientific float
// arrays, offering two interchangeable core pipelines behind one Config:
// a block-structured predict/quantize/entropy-code pass (blockcompressor)
// and a progressive multi-level interpolation pass (progressive) that
// supports decoding a truncated, coarser prefix of the stream.
package sz
