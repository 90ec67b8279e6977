package alloc

import (
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndReleaseBalances(t *testing.T) {
	budget := NewBudget(memsize.Bytes(100))
	a := New(budget)

	require.NoError(t, a.Reserve(memsize.Bytes(40)))
	assert.Equal(t, uint64(60), budget.Remaining().Bytes())

	a.Release(memsize.Bytes(40))
	assert.Equal(t, uint64(100), budget.Remaining().Bytes())
}

func TestReserveExceedsLimit(t *testing.T) {
	budget := NewBudget(memsize.Bytes(10))
	a := New(budget)

	err := a.Reserve(memsize.Bytes(11))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindAllocationExceedsLimit))
}

func TestClearOnAllocationRunsOnceBeforeFailing(t *testing.T) {
	budget := NewBudget(memsize.Bytes(10))
	calls := 0
	a := NewWithHook(budget, func(requested memsize.Size) {
		calls++
		// Pretend we evicted 5 bytes worth of cache; still not enough
		// for a 16-byte request but this proves the hook ran exactly once.
		budget.increase(memsize.Bytes(5))
	})

	err := a.Reserve(memsize.Bytes(16))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClearOnAllocationCanRescueAllocation(t *testing.T) {
	budget := NewBudget(memsize.Bytes(10))
	a := NewWithHook(budget, func(requested memsize.Size) {
		budget.increase(memsize.Bytes(20))
	})

	require.NoError(t, a.Reserve(memsize.Bytes(11)))
}

func TestEngineUsableAfterOverflow(t *testing.T) {
	// S6: after an AllocationExceedsLimit error, the engine remains usable.
	budget := NewBudget(memsize.Bytes(10))
	a := New(budget)

	err := a.Reserve(memsize.Bytes(11))
	require.Error(t, err)

	require.NoError(t, a.Reserve(memsize.Bytes(5)))
}
