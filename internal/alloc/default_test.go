package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBudgetIsPositive(t *testing.T) {
	b := DefaultBudget()
	require.Greater(t, b.Remaining().Bytes(), uint64(0))
}
