package lossless_test

import (
	"bytes"
	"testing"

	"github.com/scidata-compress/sz/lossless"
)

func TestNoneRoundTrip(t *testing.T) {
	c, err := lossless.New(lossless.IDNone)
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte("the quick brown fox")
	sealed, err := c.Compress(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decompress(sealed, len(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("got %q, want %q", got, raw)
	}
}

func TestNoneRejectsLengthMismatch(t *testing.T) {
	c, _ := lossless.New(lossless.IDNone)
	if _, err := c.Decompress([]byte("short"), 100); err == nil {
		t.Fatal("expected length-mismatch error")
	}
}

func TestZstdRoundTrip(t *testing.T) {
	c, err := lossless.New(lossless.IDZstd)
	if err != nil {
		t.Fatal(err)
	}
	raw := bytes.Repeat([]byte("scientific grid data "), 200)
	sealed, err := c.Compress(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(sealed) >= len(raw) {
		t.Fatalf("expected zstd to compress repetitive input: sealed=%d raw=%d", len(sealed), len(raw))
	}
	got, err := c.Decompress(sealed, len(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatal("zstd round trip mismatch")
	}
}

func TestZstdEmptyInput(t *testing.T) {
	c, _ := lossless.New(lossless.IDZstd)
	sealed, err := c.Compress(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decompress(sealed, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestNewRejectsUnknownID(t *testing.T) {
	if _, err := lossless.New(lossless.ID(99)); err == nil {
		t.Fatal("expected error for unknown codec id")
	}
}
