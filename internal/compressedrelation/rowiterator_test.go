package compressedrelation

import (
	"context"
	"io"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainStream(t *testing.T, it *RowIterator) [][]int64 {
	t.Helper()
	var out [][]int64
	for {
		row, err := it.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		r := make([]int64, len(row))
		for i, id := range row {
			r[i] = id.GetInt()
		}
		out = append(out, r)
	}
}

func TestScanStreamMatchesEagerScan(t *testing.T) {
	perm, _ := buildFixture(t, 1)
	defer perm.Close()

	eager, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(4)})
	require.NoError(t, err)

	it, err := perm.ScanStream(context.Background(), []valueid.Id{valueid.MakeFromInt(4)})
	require.NoError(t, err)
	streamed := drainStream(t, it)

	require.Len(t, streamed, len(eager))
	for i, row := range eager {
		assert.Equal(t, int64(4), row[0].GetInt())
		assert.Equal(t, row[0].GetInt(), streamed[i][0])
		assert.Equal(t, row[1].GetInt(), streamed[i][1])
		assert.Equal(t, row[2].GetInt(), streamed[i][2])
	}
}

func TestScanStreamMissingSubjectIsEmpty(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	defer perm.Close()

	it, err := perm.ScanStream(context.Background(), []valueid.Id{valueid.MakeFromInt(99)})
	require.NoError(t, err)
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestScanStreamOnClosedPermutationPanics(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	require.NoError(t, perm.Close())
	assert.Panics(t, func() {
		_, _ = perm.ScanStream(context.Background(), []valueid.Id{valueid.MakeFromInt(1)})
	})
}

func TestScanStreamRejectsCancelledContext(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	defer perm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it, err := perm.ScanStream(ctx, []valueid.Id{valueid.MakeFromInt(1)})
	require.NoError(t, err)
	_, err = it.Next()
	require.Error(t, err)
}
