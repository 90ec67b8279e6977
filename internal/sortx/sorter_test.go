package sortx

import (
	"io"
	"os"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRow(vals ...int64) rows.Row {
	r := make(rows.Row, len(vals))
	for i, v := range vals {
		r[i] = valueid.MakeFromInt(v)
	}
	return r
}

func drain(t *testing.T, m *MergeIterator) []rows.Row {
	t.Helper()
	var out []rows.Row
	for {
		r, err := m.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestSortInMemoryNoSpill(t *testing.T) {
	s, err := New(3, SortSPO(3), alloc.Unlimited(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Push(mkRow(3, 1, 1)))
	require.NoError(t, s.Push(mkRow(1, 2, 1)))
	require.NoError(t, s.Push(mkRow(2, 1, 1)))

	merged, err := s.GetSortedBlocks()
	require.NoError(t, err)
	defer merged.Close()

	out := drain(t, merged)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0][0].GetInt())
	assert.Equal(t, int64(2), out[1][0].GetInt())
	assert.Equal(t, int64(3), out[2][0].GetInt())
}

func TestSortSpillsAndMergesAcrossRuns(t *testing.T) {
	budget := alloc.NewBudget(memsize.Bytes(300))
	s, err := New(2, SortSPO(2), alloc.New(budget), t.TempDir())
	require.NoError(t, err)

	n := 50
	for i := n; i > 0; i-- {
		require.NoError(t, s.Push(mkRow(int64(i), int64(i*2))))
	}
	require.NotEmpty(t, s.runs, "small budget should have forced at least one spill")

	merged, err := s.GetSortedBlocks()
	require.NoError(t, err)
	defer merged.Close()

	out := drain(t, merged)
	require.Len(t, out, n)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1][0].GetInt(), out[i][0].GetInt())
	}
}

func TestPushAfterFinalizePanics(t *testing.T) {
	s, err := New(1, SortSPO(1), alloc.Unlimited(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Push(mkRow(1)))
	_, err = s.GetSortedBlocks()
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = s.Push(mkRow(2))
	})
}

func TestWrongColumnCountRejected(t *testing.T) {
	s, err := New(3, SortSPO(3), alloc.Unlimited(), t.TempDir())
	require.NoError(t, err)
	err = s.Push(mkRow(1, 2))
	assert.True(t, errs.Is(err, errs.KindParse))
}

func TestCloseRemovesRunFiles(t *testing.T) {
	budget := alloc.NewBudget(memsize.Bytes(200))
	dir := t.TempDir()
	s, err := New(2, SortSPO(2), alloc.New(budget), dir)
	require.NoError(t, err)
	for i := 30; i > 0; i-- {
		require.NoError(t, s.Push(mkRow(int64(i), int64(i))))
	}
	require.NotEmpty(t, s.runs)

	merged, err := s.GetSortedBlocks()
	require.NoError(t, err)
	_ = drain(t, merged)
	require.NoError(t, merged.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
