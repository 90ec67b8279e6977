// Copyright 2025 The QLever Authors.
package alloc

import (
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/pbnjay/memory"
)

// defaultBudgetFraction is the share of total system memory handed to a
// query's Budget when no explicit memory limit was configured at
// startup.
const defaultBudgetFraction = 0.8

// DefaultBudget picks a Budget sized from a fraction of total system
// memory, used when the index-builder/server is started without an
// explicit memory limit flag. Falls back to memsize.Gigabytes(4) if the
// system's total memory cannot be determined (memory.TotalMemory()
// returns 0 in that case).
func DefaultBudget() *Budget {
	total := memory.TotalMemory()
	if total == 0 {
		return NewBudget(memsize.Gigabytes(4))
	}
	return NewBudget(memsize.Bytes(uint64(float64(total) * defaultBudgetFraction)))
}
