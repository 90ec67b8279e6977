package intervals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortAndCheckDisjointAndNonempty(t *testing.T) {
	s := SortAndCheckDisjointAndNonempty(Set{Intervals: []Interval{{5, 8}, {0, 3}}})
	assert.Equal(t, []Interval{{0, 3}, {5, 8}}, s.Intervals)
}

func TestSortAndCheckPanicsOnOverlap(t *testing.T) {
	assert.Panics(t, func() {
		SortAndCheckDisjointAndNonempty(Set{Intervals: []Interval{{0, 5}, {3, 8}}})
	})
}

func TestSortAndCheckPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() {
		SortAndCheckDisjointAndNonempty(Set{Intervals: []Interval{{3, 3}}})
	})
}

func TestIntersection(t *testing.T) {
	a := Set{Intervals: []Interval{{0, 10}, {20, 30}}}
	b := Set{Intervals: []Interval{{5, 25}}}
	got := Intersection(a, b)
	assert.Equal(t, []Interval{{5, 10}, {20, 25}}, got.Intervals)
}

func TestUnion(t *testing.T) {
	a := Set{Intervals: []Interval{{0, 5}}}
	b := Set{Intervals: []Interval{{3, 8}, {10, 12}}}
	got := Union(a, b)
	assert.Equal(t, []Interval{{0, 8}, {10, 12}}, got.Intervals)
}

func TestToBitVectorAgreesWithRowwise(t *testing.T) {
	s := Set{Intervals: []Interval{{1, 3}, {5, 6}}}
	bits := ToBitVector(s, 7)
	want := []bool{false, true, true, false, false, true, false}
	assert.Equal(t, want, bits)
}

func TestBitmapRoundTrip(t *testing.T) {
	s := SortAndCheckDisjointAndNonempty(Set{Intervals: []Interval{{2, 5}, {10, 11}}})
	bm := ToBitmap(s)
	back := FromBitmap(bm)
	require.Equal(t, s.Intervals, back.Intervals)
}
