package bits_test

import (
	"bytes"
	"testing"

	"github.com/scidata-compress/sz/internal/bits"
)

func TestGamma(t *testing.T) {
	cases := []uint64{0, 1, 2, 3, 7, 8, 100, 65535, 1 << 31, 1<<32 - 1}
	w := new(bytes.Buffer)
	bw := bits.NewWriter(w)
	for _, x := range cases {
		if err := bw.WriteGamma(x); err != nil {
			t.Fatalf("error writing gamma for %d: %v", x, err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("error closing the buffer: %v", err)
	}
	r := bits.NewReader(w)
	for _, want := range cases {
		got, err := r.ReadGamma()
		if err != nil {
			t.Fatalf("error reading gamma: %v", err)
		}
		if got != want {
			t.Fatalf("gamma round trip mismatch. got: %v, expected: %v", got, want)
		}
	}
}

func TestUnary(t *testing.T) {
	w := new(bytes.Buffer)
	bw := bits.NewWriter(w)

	var want uint64
	for ; want < 1000; want++ {
		// Write unary
		if err := bw.WriteUnary(want); err != nil {
			t.Fatalf("error writing unary: %v", err)
		}
		// Flush buffer
		if err := bw.Close(); err != nil {
			t.Fatalf("error closing the buffer: %v", err)
		}

		// Read written unary
		r := bits.NewReader(w)
		got, err := r.ReadUnary()
		if err != nil {
			t.Fatalf("error reading unary: %v", err)
		}

		if got != want {
			t.Fatalf("the written and read unary doesn't match the original. got: %v, expected: %v", got, want)
		}
	}
}
