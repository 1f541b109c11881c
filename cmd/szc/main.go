// Command szc is a thin CLI around package sz: compress and decompress raw
// float64 grids, and a wav-demo subcommand that round-trips a WAV file's PCM
// samples through the compressor to demonstrate lossy accuracy on audio
// data.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/scidata-compress/sz"
	"github.com/scidata-compress/sz/config"
	"github.com/scidata-compress/sz/quantize"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: szc [compress|decompress|wav-demo] [OPTION]... FILE")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "compress -dims D1,D2,... -eps E IN.raw OUT.sz")
	fmt.Fprintln(os.Stderr, "  Compress a flat little-endian float64 grid.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "decompress IN.sz OUT.raw")
	fmt.Fprintln(os.Stderr, "  Decompress a stream back to a flat float64 grid.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "wav-demo -eps E IN.wav [OUT.wav]")
	fmt.Fprintln(os.Stderr, "  Round-trip a WAV file's PCM samples through the compressor,")
	fmt.Fprintln(os.Stderr, "  report the reconstruction error, and optionally write the")
	fmt.Fprintln(os.Stderr, "  reconstructed audio to OUT.wav.")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	// The per-cell bound assertion is for tests; skip it on real workloads.
	quantize.StrictBoundChecks = false

	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	var (
		dims string
		eps  float64
	)
	flag.StringVar(&dims, "dims", "", "comma-separated grid dimensions (compress only)")
	flag.Float64Var(&eps, "eps", 1e-3, "absolute error bound")
	flag.Parse()

	var err error
	switch command {
	case "compress":
		err = runCompress(dims, eps, flag.Args())
	case "decompress":
		err = runDecompress(flag.Args())
	case "wav-demo":
		err = runWavDemo(eps, flag.Args())
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func parseDims(s string) ([]int, error) {
	if s == "" {
		return nil, errors.New("szc: -dims is required")
	}
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "szc: invalid dimension %q", p)
		}
		dims[i] = d
	}
	return dims, nil
}

func runCompress(dimsFlag string, eps float64, args []string) error {
	if len(args) != 2 {
		return errors.New("szc: compress requires IN.raw and OUT.sz")
	}
	dims, err := parseDims(dimsFlag)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	if len(raw)%8 != 0 {
		return errors.Errorf("szc: input length %d is not a multiple of 8 bytes", len(raw))
	}
	data := make([]float64, len(raw)/8)
	for i := range data {
		bits := binary.LittleEndian.Uint64(raw[i*8:])
		data[i] = math.Float64frombits(bits)
	}

	cfg := config.Default()
	cfg.Eps = eps
	stream, err := sz.Compress(cfg, data, dims)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.WriteFile(args[1], stream, 0644); err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("wrote %s: %d bytes (%.1fx smaller)\n", args[1], len(stream), float64(len(raw))/float64(len(stream)))
	return nil
}

func runDecompress(args []string) error {
	if len(args) != 2 {
		return errors.New("szc: decompress requires IN.sz and OUT.raw")
	}
	stream, err := os.ReadFile(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	v, err := sz.Decompress[float64](stream)
	if err != nil {
		return errors.WithStack(err)
	}
	raw := make([]byte, len(v.Data)*8)
	for i, x := range v.Data {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(x))
	}
	if err := os.WriteFile(args[1], raw, 0644); err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("wrote %s: %d float64 samples, dims=%v\n", args[1], len(v.Data), v.Dims)
	return nil
}

func runWavDemo(eps float64, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("szc: wav-demo requires IN.wav [OUT.wav]")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return errors.Errorf("szc: invalid WAV file %q", args[0])
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return errors.WithStack(err)
	}

	data := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		data[i] = float64(s)
	}
	// Compress overwrites its input in place, so keep a copy of the
	// original samples to measure reconstruction error against.
	orig := append([]float64(nil), data...)
	dims := []int{len(data)}

	cfg := config.Default()
	cfg.Eps = eps
	cfg.Pipeline = config.PipelineBlock
	stream, err := sz.Compress(cfg, data, dims)
	if err != nil {
		return errors.WithStack(err)
	}
	v, err := sz.Decompress[float64](stream)
	if err != nil {
		return errors.WithStack(err)
	}

	var maxErr float64
	for i, want := range orig {
		got := v.Data[i]
		if d := got - want; d > maxErr || -d > maxErr {
			maxErr = abs(d)
		}
	}
	fmt.Printf("%s: %d PCM samples, %d bytes -> %d bytes (%.1fx), max reconstruction error %.4g\n",
		args[0], len(data), len(data)*8, len(stream), float64(len(data)*8)/float64(len(stream)), maxErr)

	if len(args) == 2 {
		if err := writeReconstructedWav(args[1], buf, v.Data); err != nil {
			return err
		}
		fmt.Printf("wrote reconstructed audio to %s\n", args[1])
	}
	return nil
}

// writeReconstructedWav re-encodes the decompressed samples as a WAV file
// with the same format as the source buffer, letting a listener A/B the
// lossy round trip.
func writeReconstructedWav(path string, format *audio.IntBuffer, data []float64) error {
	w, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	enc := wav.NewEncoder(w, format.Format.SampleRate, format.SourceBitDepth, format.Format.NumChannels, 1)
	out := &audio.IntBuffer{
		Format:         format.Format,
		SourceBitDepth: format.SourceBitDepth,
		Data:           make([]int, len(data)),
	}
	for i, x := range data {
		out.Data[i] = int(x)
	}
	if err := enc.Write(out); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(enc.Close())
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
