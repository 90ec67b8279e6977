package compressedrelation

import (
	"context"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/require"
)

func TestLazyScanPoolRunsAllRequestsInOrder(t *testing.T) {
	perm, _ := buildFixture(t, 4096)
	defer perm.Close()

	pool := NewLazyScanPool(2, 2)
	reqs := make([]ScanRequest, 5)
	for s := int64(1); s <= 5; s++ {
		reqs[s-1] = ScanRequest{Permutation: perm, Prefix: []valueid.Id{valueid.MakeFromInt(s)}}
	}

	results, err := pool.RunAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		require.Equal(t, i, r.Index)
		require.NoError(t, r.Err)
		require.Len(t, r.Rows, 4)
	}
}

func TestLazyScanPoolRespectsCancellation(t *testing.T) {
	perm, _ := buildFixture(t, 4096)
	defer perm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewLazyScanPool(1, 1)
	reqs := []ScanRequest{
		{Permutation: perm, Prefix: []valueid.Id{valueid.MakeFromInt(1)}},
		{Permutation: perm, Prefix: []valueid.Id{valueid.MakeFromInt(2)}},
	}
	results, err := pool.RunAll(ctx, reqs)
	// Either RunAll surfaces the cancellation directly, or each individual
	// scan observes the already-cancelled context and reports it on its
	// own result; either is an acceptable outcome of submitting work to an
	// already-cancelled pool.
	if err == nil {
		for _, r := range results {
			require.Error(t, r.Err)
		}
	}
}

func TestNewLazyScanPoolClampsNonPositiveSizes(t *testing.T) {
	pool := NewLazyScanPool(0, 0)
	require.Equal(t, 1, pool.numThreads)
	require.Equal(t, 1, pool.queueSize)
}
