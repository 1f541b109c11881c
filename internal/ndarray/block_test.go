package ndarray_test

import (
	"reflect"
	"testing"

	"github.com/scidata-compress/sz/internal/ndarray"
)

func TestBlockIteratorClipsTail(t *testing.T) {
	it := ndarray.NewBlockIterator([]int{5, 3}, 2)
	var got []ndarray.Block
	for {
		b, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, b)
	}
	want := []ndarray.Block{
		{Begin: []int{0, 0}, End: []int{2, 2}},
		{Begin: []int{0, 2}, End: []int{2, 3}},
		{Begin: []int{2, 0}, End: []int{4, 2}},
		{Begin: []int{2, 2}, End: []int{4, 3}},
		{Begin: []int{4, 0}, End: []int{5, 2}},
		{Begin: []int{4, 2}, End: []int{5, 3}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("blocks mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
	if n := ndarray.NumBlocks([]int{5, 3}, 2); n != len(want) {
		t.Errorf("NumBlocks = %d, want %d", n, len(want))
	}
}

func TestRangeRowMajor(t *testing.T) {
	r := ndarray.NewRange([]int{0, 0}, []int{2, 3})
	var got [][]int
	for {
		idx, ok := r.Next()
		if !ok {
			break
		}
		cp := append([]int(nil), idx...)
		got = append(got, cp)
	}
	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("range mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}
