package compressedrelation

import (
	"context"
	"path/filepath"
	"testing"

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

func buildFixture(t *testing.T, blockByteTarget int) (*Permutation, string) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "spo.blocks.dat")
	metaPath := filepath.Join(dir, "spo.meta")

	w, err := NewRelationWriter(dataPath, 3, blockByteTarget)
	require.NoError(t, err)

	// subject values 1..5, each with several predicate/object rows, already
	// sorted lexicographically by (subject, predicate, object).
	for s := int64(1); s <= 5; s++ {
		for p := int64(1); p <= 4; p++ {
			require.NoError(t, w.PushRow(mkRow(s, p, p*10)))
		}
	}
	require.NoError(t, w.Close(metaPath))

	perm, err := Load(dataPath, metaPath)
	require.NoError(t, err)
	return perm, dir
}

func TestScanFindsExactSubject(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20) // large target: likely one block total
	defer perm.Close()

	out, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(3)})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, r := range out {
		assert.Equal(t, int64(3), r[0].GetInt())
	}
}

func TestScanWithTwoColumnPrefix(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	defer perm.Close()

	out, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(2), valueid.MakeFromInt(3)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(30), out[0][2].GetInt())
}

func TestScanMissingSubjectIsEmpty(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	defer perm.Close()

	out, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(99)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScanSplitAcrossManyBlocks(t *testing.T) {
	// Tiny block target forces a new block roughly every subject change.
	perm, _ := buildFixture(t, 1)
	defer perm.Close()

	out, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(4)})
	require.NoError(t, err)
	require.Len(t, out, 4)
}

func TestSizeEstimate(t *testing.T) {
	// Tiny block target so each subject lands in its own block, making the
	// lower bound exact.
	perm, _ := buildFixture(t, 1)
	defer perm.Close()

	lower, upper := perm.SizeEstimate(valueid.MakeFromInt(3))
	assert.Equal(t, uint64(4), lower)
	assert.Equal(t, uint64(4), upper)

	lower, upper = perm.SizeEstimate(valueid.MakeFromInt(99))
	assert.Equal(t, uint64(0), lower)
	assert.Equal(t, uint64(0), upper)
}

func TestScanOnClosedPermutationPanics(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	require.NoError(t, perm.Close())
	assert.Panics(t, func() {
		_, _ = perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromInt(1)})
	})
}

func TestScanRejectsCancelledContext(t *testing.T) {
	perm, _ := buildFixture(t, 1<<20)
	defer perm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := perm.Scan(ctx, []valueid.Id{valueid.MakeFromInt(1)})
	require.Error(t, err)
}
