// Copyright 2025 The QLever Authors.
//
// Package sortx implements the external id-table sorter from spec.md
// section 4.3, grounded on original_source's
// index/ExternalSortFunctors.h (the SortTriple comparator family) and
// engine/idTable/CompressedExternalIdTable.h (push/spill/merge protocol).
package sortx

import (
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// Comparator imposes a strict weak ordering over rows.Row, as required by
// the sorter's merge step (spec.md section 4.3).
type Comparator func(a, b rows.Row) bool // a < b

// KeyOrder builds a Comparator that compares rows lexicographically over
// the given column indices using valueid.CompareWithoutLocalVocab, the
// only order permitted for bytes headed to disk. This mirrors SortTriple's
// compile-time column list as a runtime slice, since materialized views
// may have more than three leading columns (spec.md section 4.5).
func KeyOrder(cols ...int) Comparator {
	return func(a, b rows.Row) bool {
		for _, c := range cols {
			cmp := valueid.CompareWithoutLocalVocab(a[c], b[c])
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	}
}

// SortSPO is the key order used when building the SPO permutation: sort by
// subject, predicate, object, then graph as a tie-breaker "so that
// identical triples across graphs are kept distinct" (spec.md section
// 4.3).
func SortSPO(numCols int) Comparator {
	cols := make([]int, 0, numCols)
	for i := 0; i < numCols; i++ {
		cols = append(cols, i)
	}
	return KeyOrder(cols...)
}

// SortByPSO, SortBySPO, SortByOSP mirror the original engine's three
// standard permutation comparators for the canonical width-4 triple
// (subject=0, predicate=1, object=2, graph=3).
func SortByPSO() Comparator { return KeyOrder(1, 0, 2, 3) }
func SortBySPO() Comparator { return KeyOrder(0, 1, 2, 3) }
func SortByOSP() Comparator { return KeyOrder(2, 0, 1, 3) }
