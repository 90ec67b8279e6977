// Copyright 2025 The QLever Authors.
package view

import (
	"path/filepath"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

func mkRow(vals ...int64) rows.Row {
	r := make(rows.Row, len(vals))
	for i, v := range vals {
		r[i] = valueid.MakeFromInt(v)
	}
	return r
}

// staticProducer replays a fixed list of blocks, then reports exhaustion.
type staticProducer struct {
	blocks [][]rows.Row
	pos    int
}

func (p *staticProducer) Next() ([]rows.Row, bool, bool, error) {
	if p.pos >= len(p.blocks) {
		return nil, false, false, nil
	}
	b := p.blocks[p.pos]
	p.pos++
	return b, false, true, nil
}

func buildView(t *testing.T, name string) (*View, string) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "index")

	producer := &staticProducer{blocks: [][]rows.Row{
		{mkRow(3, 1, 100, 0), mkRow(1, 1, 100, 0)},
		{mkRow(2, 1, 100, 0)},
	}}

	w, err := NewWriter(WriterConfig{
		Name:      name,
		Base:      base,
		Columns:   []string{"s", "p", "o", "g"},
		Allocator: alloc.Unlimited(),
		TmpDir:    filepath.Join(dir, "tmp"),
	})
	require.NoError(t, err)
	require.NoError(t, w.WriteToDisk(producer))

	v, err := Load(base, name)
	require.NoError(t, err)
	return v, base
}

func TestNewWriterRejectsInvalidName(t *testing.T) {
	_, err := NewWriter(WriterConfig{Name: "not valid!", Columns: []string{"a", "b", "c", "d"}})
	require.Error(t, err)
}

func TestNewWriterRejectsNarrowColumnList(t *testing.T) {
	_, err := NewWriter(WriterConfig{Name: "ok-name", Columns: []string{"a", "b", "c"}})
	require.Error(t, err)
}

func TestWriteToDiskRejectsLocalVocabBlocks(t *testing.T) {
	dir := t.TempDir()
	producer := &staticProducer{blocks: [][]rows.Row{{mkRow(1, 1, 1, 0)}}}
	w, err := NewWriter(WriterConfig{
		Name:      "lv",
		Base:      filepath.Join(dir, "index"),
		Columns:   []string{"s", "p", "o", "g"},
		Allocator: alloc.Unlimited(),
		TmpDir:    filepath.Join(dir, "tmp"),
	})
	require.NoError(t, err)

	lvProducer := &lvBlockProducer{inner: producer}
	require.Error(t, w.WriteToDisk(lvProducer))
}

type lvBlockProducer struct{ inner *staticProducer }

func (p *lvBlockProducer) Next() ([]rows.Row, bool, bool, error) {
	b, _, ok, err := p.inner.Next()
	return b, true, ok, err
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	v, _ := buildView(t, "my-view")
	defer v.Close()
	require.Equal(t, []string{"s", "p", "o", "g"}, v.Columns)
}

func TestMakeScanConfigBindsColumns(t *testing.T) {
	v, _ := buildView(t, "scan-view")
	defer v.Close()

	cfg, err := v.MakeScanConfig(ScanTarget{
		ViewName:     "scan-view",
		ScanVariable: "?subjectVar",
		PayloadBindings: []PayloadBinding{
			{ViewColumn: "g", TargetVariable: "?graphVar"},
		},
	}, "?predVar", "?objVar")
	require.NoError(t, err)
	require.Equal(t, []string{"?subjectVar", "?predVar", "?objVar", "?graphVar"}, cfg.ColumnVars)
}

func TestMakeScanConfigRejectsGraphPattern(t *testing.T) {
	v, _ := buildView(t, "gp-view")
	defer v.Close()

	_, err := v.MakeScanConfig(ScanTarget{ViewName: "gp-view", HasGraphPattern: true, ScanVariable: "?x"}, "?p", "?o")
	require.Error(t, err)
}

func TestMakeScanConfigRequiresScanVariable(t *testing.T) {
	v, _ := buildView(t, "noscan-view")
	defer v.Close()

	_, err := v.MakeScanConfig(ScanTarget{ViewName: "noscan-view"}, "?p", "?o")
	require.Error(t, err)
}

func TestMakeScanConfigRejectsScanColumnAsPayload(t *testing.T) {
	v, _ := buildView(t, "dup-scan-view")
	defer v.Close()

	_, err := v.MakeScanConfig(ScanTarget{
		ViewName:     "dup-scan-view",
		ScanVariable: "?x",
		PayloadBindings: []PayloadBinding{
			{ViewColumn: "g", TargetVariable: "?x"},
		},
	}, "?p", "?o")
	require.Error(t, err)
}

func TestMakeScanConfigRejectsIndexColumnAsPayload(t *testing.T) {
	v, _ := buildView(t, "idx-payload-view")
	defer v.Close()

	_, err := v.MakeScanConfig(ScanTarget{
		ViewName:     "idx-payload-view",
		ScanVariable: "?x",
		PayloadBindings: []PayloadBinding{
			{ViewColumn: "s", TargetVariable: "?y"},
		},
	}, "?p", "?o")
	require.Error(t, err)
}

func TestMakeScanConfigRejectsDuplicateTargetVariable(t *testing.T) {
	v, _ := buildView(t, "dup-target-view")
	defer v.Close()

	_, err := v.MakeScanConfig(ScanTarget{
		ViewName:     "dup-target-view",
		ScanVariable: "?x",
		PayloadBindings: []PayloadBinding{
			{ViewColumn: "o", TargetVariable: "?same"},
			{ViewColumn: "g", TargetVariable: "?same"},
		},
	}, "?p", "?o")
	require.Error(t, err)
}

func TestLoadRejectsUnknownView(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "index"), "does-not-exist")
	require.Error(t, err)
}

func TestWriteToDiskRejectsConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "index")
	filename := FilenameBase(base, "locked-view")

	lock := flock.New(filename + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer lock.Unlock()

	producer := &staticProducer{blocks: [][]rows.Row{{mkRow(1, 1, 1, 0)}}}
	w, err := NewWriter(WriterConfig{
		Name:      "locked-view",
		Base:      base,
		Columns:   []string{"s", "p", "o", "g"},
		Allocator: alloc.Unlimited(),
		TmpDir:    filepath.Join(dir, "tmp"),
	})
	require.NoError(t, err)
	require.Error(t, w.WriteToDisk(producer))
}

func TestManagerLoadsOnFirstUse(t *testing.T) {
	_, base := buildView(t, "managed-view")
	m := NewManager(base)
	defer m.Close()

	v1, err := m.GetView("managed-view")
	require.NoError(t, err)
	v2, err := m.GetView("managed-view")
	require.NoError(t, err)
	require.Same(t, v1, v2)
}
