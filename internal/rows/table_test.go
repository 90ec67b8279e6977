package rows

import (
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRow(vals ...int64) []valueid.Id {
	row := make([]valueid.Id, len(vals))
	for i, v := range vals {
		row[i] = valueid.MakeFromInt(v)
	}
	return row
}

func TestDispatcherPicksStaticForSmallWidth(t *testing.T) {
	tbl := NewTable(4)
	_, isStatic := tbl.(*StaticTable)
	assert.True(t, isStatic, "width 4 should dispatch to StaticTable")
}

func TestDispatcherPicksDynamicForLargeWidth(t *testing.T) {
	tbl := NewTable(9)
	_, isDynamic := tbl.(*DynamicTable)
	assert.True(t, isDynamic, "width 9 should dispatch to DynamicTable")
}

func TestAppendAndReadBack(t *testing.T) {
	for _, width := range []int{1, 4, 5, 8} {
		tbl := NewTable(width)
		tbl.AppendRow(mkRow(makeInts(width)...))
		tbl.AppendRow(mkRow(makeIntsOffset(width, 100)...))
		require.Equal(t, 2, tbl.NumRows())
		require.Equal(t, width, tbl.NumCols())
		for c := 0; c < width; c++ {
			assert.Equal(t, int64(c), tbl.At(0, c).GetInt())
			assert.Equal(t, int64(100+c), tbl.At(1, c).GetInt())
		}
	}
}

func makeInts(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func makeIntsOffset(n int, offset int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = offset + int64(i)
	}
	return out
}

func TestColumnAccess(t *testing.T) {
	tbl := NewTable(3)
	tbl.AppendRow(mkRow(1, 2, 3))
	tbl.AppendRow(mkRow(4, 5, 6))
	col1 := tbl.Column(1)
	require.Len(t, col1, 2)
	assert.Equal(t, int64(2), col1[0].GetInt())
	assert.Equal(t, int64(5), col1[1].GetInt())
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := NewTable(4)
	tbl.AppendRow(mkRow(1, 2, 3, 4))
	clone := tbl.Clone()
	clone.SetAt(0, 0, valueid.MakeFromInt(999))
	assert.Equal(t, int64(1), tbl.At(0, 0).GetInt())
	assert.Equal(t, int64(999), clone.At(0, 0).GetInt())
}

func TestSortedOnRoundTrip(t *testing.T) {
	tbl := NewTable(4)
	tbl.SetSortedOn([]int{0, 1})
	assert.Equal(t, []int{0, 1}, tbl.SortedOn())
}
