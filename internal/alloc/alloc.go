// Copyright 2025 The QLever Authors.
//
// Package alloc implements the shared byte-budget memory accountant from
// spec.md section 5, grounded directly on
// original_source/src/util/AllocatorWithLimit.h: a mutex-guarded counter
// of remaining bytes, shared (via pointer) across every allocator derived
// from it, with an optional ClearOnAllocation hook invoked exactly once
// before the final AllocationExceedsLimit error.
package alloc

import (
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/qlog"
)

var log = qlog.New("alloc")

// Budget is the shared remaining-byte counter. Multiple Allocators can
// point at the same Budget so that their combined allocations never
// exceed the configured limit (spec.md section 5: "every allocator
// increments it on allocate and decrements on deallocate").
type Budget struct {
	mu   sync.Mutex
	free memsize.Size
}

// NewBudget creates a Budget with n bytes of headroom.
func NewBudget(n memsize.Size) *Budget {
	return &Budget{free: n}
}

func (b *Budget) tryDecrease(n memsize.Size) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n.LessEq(b.free) {
		b.free = b.free.Sub(n)
		return true
	}
	return false
}

func (b *Budget) increase(n memsize.Size) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.free = b.free.Add(n)
}

// Remaining returns the bytes currently available for allocation.
func (b *Budget) Remaining() memsize.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.free
}

// ClearOnAllocation is invoked, with the amount that failed to fit, when an
// Allocator cannot satisfy a Reserve call. It gets exactly one chance to
// free memory (e.g. by evicting cache entries) before the allocator
// re-checks and, if still insufficient, raises AllocationExceedsLimit
// (spec.md section 7: "Only AllocationExceedsLimit is caught at one
// well-defined spot").
type ClearOnAllocation func(requested memsize.Size)

// Allocator is a per-query handle onto a shared Budget. Copies of an
// Allocator (handed to every operator and expression evaluator of one
// query) all count against the same Budget.
type Allocator struct {
	budget           *Budget
	clearOnAllocation ClearOnAllocation
}

// New returns an Allocator drawing from budget, with no clear-on-allocation
// hook (use NewWithHook to wire one, e.g. to the result cache's eviction).
func New(budget *Budget) *Allocator {
	return &Allocator{budget: budget}
}

// NewWithHook returns an Allocator whose clear-on-allocation hook runs once
// before a Reserve failure becomes a final AllocationExceedsLimit error.
func NewWithHook(budget *Budget, hook ClearOnAllocation) *Allocator {
	return &Allocator{budget: budget, clearOnAllocation: hook}
}

// Remaining returns the bytes currently available on this Allocator's
// Budget, usable as a sizing hint (e.g. to preallocate a buffer) rather
// than as a hard reservation.
func (a *Allocator) Remaining() memsize.Size {
	return a.budget.Remaining()
}

// Reserve accounts for n bytes of future allocation, returning
// AllocationExceedsLimit if, even after the clear-on-allocation hook ran
// once, the budget cannot satisfy the request.
func (a *Allocator) Reserve(n memsize.Size) error {
	if a.budget.tryDecrease(n) {
		return nil
	}
	if a.clearOnAllocation != nil {
		a.clearOnAllocation(n)
		if a.budget.tryDecrease(n) {
			return nil
		}
	}
	free := a.budget.Remaining()
	log.Warn("allocation exceeds limit", "requested", n.String(), "free", free.String())
	return errs.AllocationExceedsLimit(n.Bytes(), free.Bytes())
}

// Release returns n bytes to the shared budget.
func (a *Allocator) Release(n memsize.Size) {
	a.budget.increase(n)
}

// Unlimited returns an Allocator effectively without a budget, used for
// internal bookkeeping paths that are not subject to the query memory
// limit (mirrors makeUnlimitedAllocator in the original implementation).
func Unlimited() *Allocator {
	return New(NewBudget(memsize.Max()))
}
