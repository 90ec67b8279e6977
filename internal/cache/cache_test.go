// Copyright 2025 The QLever Authors.
package cache

import (
	"path/filepath"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/config"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/require"
)

func mkTable(vals ...uint64) rows.Table {
	t := rows.NewTable(1)
	for _, v := range vals {
		t.AppendRow([]valueid.Id{valueid.Id(v)})
	}
	return t
}

func TestQueryResultCachePutGetRoundTrip(t *testing.T) {
	reg := config.NewDefault()
	c, err := New(reg)
	require.NoError(t, err)

	e := NewEntry(mkTable(1, 2, 3), nil, memsize.Bytes(100))
	c.Put("key-a", e)

	got, ok := c.Get("key-a")
	require.True(t, ok)
	require.Equal(t, 3, got.Table.NumRows())
	got.Release()
	e.Release()
}

func TestQueryResultCacheSkipsOversizedEntry(t *testing.T) {
	reg := config.NewDefault()
	require.NoError(t, reg.Set("cache-max-size-gb-single-entry", float64(0.000001)))
	c, err := New(reg)
	require.NoError(t, err)

	e := NewEntry(mkTable(1), nil, memsize.Megabytes(10))
	c.Put("huge", e)

	_, ok := c.Get("huge")
	require.False(t, ok)
}

func TestClearOnAllocationPurgesCache(t *testing.T) {
	reg := config.NewDefault()
	c, err := New(reg)
	require.NoError(t, err)

	e := NewEntry(mkTable(1, 2), nil, memsize.Bytes(10))
	c.Put("key-a", e)
	require.Equal(t, 1, c.Len())

	c.ClearOnAllocation(memsize.Gigabytes(1))
	require.Equal(t, 0, c.Len())
}

func TestNamedResultCachePinAndGet(t *testing.T) {
	n := NewNamedResultCache()
	e := NewEntry(mkTable(1, 2, 3), nil, memsize.Bytes(10))
	require.NoError(t, n.Pin("my-view", e))

	got, ok := n.Get("my-view")
	require.True(t, ok)
	require.Equal(t, 3, got.Table.NumRows())
}

func TestNamedResultCacheRejectsInvalidName(t *testing.T) {
	n := NewNamedResultCache()
	e := NewEntry(mkTable(1), nil, memsize.Bytes(1))
	err := n.Pin("not a valid name!", e)
	require.Error(t, err)
}

func TestNamedResultCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "named.db")

	n, err := OpenPersistent(path)
	require.NoError(t, err)
	e := NewEntry(mkTable(10, 20, 30), nil, memsize.Bytes(10))
	require.NoError(t, n.Pin("saved-view", e))
	require.NoError(t, n.Close())

	reopened, err := OpenPersistent(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("saved-view")
	require.True(t, ok)
	require.Equal(t, 3, got.Table.NumRows())
	require.Equal(t, valueid.Id(10), got.Table.At(0, 0))
	require.Equal(t, valueid.Id(20), got.Table.At(1, 0))
	require.Equal(t, valueid.Id(30), got.Table.At(2, 0))
}
