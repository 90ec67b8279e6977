// Copyright 2025 The QLever Authors.
//
// Package intervals implements SetOfIntervals, grounded on
// original_source/src/parser/SetOfIntervals.h: a sorted, disjoint,
// non-empty collection of half-open ranges [begin, end) over row indices,
// used as a compact representation of boolean expression results when
// inputs are sorted (spec.md section 3/4.4).
package intervals

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Interval is a half-open range [Begin, End) of row indices.
type Interval struct {
	Begin, End int
}

// Set is the union of its (pairwise disjoint, sorted, nonempty) intervals.
type Set struct {
	Intervals []Interval
}

// SortAndCheckDisjointAndNonempty sorts the intervals ascending and
// panics (InternalInvariantViolation-equivalent) if any is empty or they
// overlap, mirroring the original's assertion-based contract.
func SortAndCheckDisjointAndNonempty(s Set) Set {
	sorted := append([]Interval(nil), s.Intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })
	for i, iv := range sorted {
		if iv.Begin >= iv.End {
			panic("intervals: empty interval is not allowed")
		}
		if i > 0 && sorted[i-1].End > iv.Begin {
			panic("intervals: intervals must be disjoint")
		}
	}
	return Set{Intervals: sorted}
}

// Simplify merges adjacent/touching intervals of an already-sorted set.
func Simplify(s Set) Set {
	if len(s.Intervals) == 0 {
		return s
	}
	out := []Interval{s.Intervals[0]}
	for _, iv := range s.Intervals[1:] {
		last := &out[len(out)-1]
		if iv.Begin <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return Set{Intervals: out}
}

// Intersection computes the intersection of two sets of intervals via a
// merge-style sweep, O(len(a)+len(b)).
func Intersection(a, b Set) Set {
	var out []Interval
	i, j := 0, 0
	for i < len(a.Intervals) && j < len(b.Intervals) {
		ai, bj := a.Intervals[i], b.Intervals[j]
		begin := max(ai.Begin, bj.Begin)
		end := min(ai.End, bj.End)
		if begin < end {
			out = append(out, Interval{begin, end})
		}
		if ai.End < bj.End {
			i++
		} else {
			j++
		}
	}
	return Set{Intervals: out}
}

// Union computes the union of two sets of intervals. Unlike
// SortAndCheckDisjointAndNonempty, the merged input may legitimately
// overlap before Simplify merges touching/overlapping runs.
func Union(a, b Set) Set {
	merged := append(append([]Interval(nil), a.Intervals...), b.Intervals...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Begin < merged[j].Begin })
	return Simplify(Set{Intervals: merged})
}

// Contains reports whether row is covered by any interval of s. s need not
// be sorted; Contains scans linearly, which is fine for the small sets
// produced by boolean expression evaluation.
func (s Set) Contains(row int) bool {
	for _, iv := range s.Intervals {
		if row >= iv.Begin && row < iv.End {
			return true
		}
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ToBitVector materializes the set as a []bool of size targetSize, true at
// every row index contained in the set. targetSize must be >= the right
// end of the rightmost interval.
func ToBitVector(s Set, targetSize int) []bool {
	out := make([]bool, targetSize)
	for _, iv := range s.Intervals {
		for i := iv.Begin; i < iv.End; i++ {
			out[i] = true
		}
	}
	return out
}

// ToBitmap materializes the set as a roaring bitmap holding every row
// index the set covers. The expression evaluator's interval fast path
// does not go through it: And/Or combine sets with Intersection/Union.
func ToBitmap(s Set) *roaring.Bitmap {
	bm := roaring.New()
	for _, iv := range s.Intervals {
		bm.AddRange(uint64(iv.Begin), uint64(iv.End))
	}
	return bm
}

// FromBitmap is the inverse of ToBitmap: it rebuilds a sorted interval set
// from the bitmap's members, merging consecutive indices into one interval.
func FromBitmap(bm *roaring.Bitmap) Set {
	var out []Interval
	it := bm.Iterator()
	var cur *Interval
	for it.HasNext() {
		v := int(it.Next())
		if cur != nil && v == cur.End {
			cur.End++
			continue
		}
		if cur != nil {
			out = append(out, *cur)
		}
		cur = &Interval{Begin: v, End: v + 1}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return Set{Intervals: out}
}
