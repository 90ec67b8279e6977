package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/cache"
	"github.com/ad-freiburg/qlever-sub013/internal/compressedrelation"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "input.nt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildIndexWritesAllPermutationsAndSidecars(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, `<s> <p> <o> .
<s2> <p> "kartoffel und salat" .
`)
	base := filepath.Join(dir, "index")

	err := BuildIndex(BuildConfig{
		Base:        base,
		InputPath:   input,
		Format:      "nt",
		MemoryLimit: memsize.Megabytes(64),
	})
	require.NoError(t, err)

	for _, suffix := range []string{"spo", "sop", "pso", "pos", "osp", "ops"} {
		require.FileExists(t, base+".index."+suffix)
		require.FileExists(t, base+".index."+suffix+".meta")
	}
	require.FileExists(t, base+".vocabulary.internal")
	require.FileExists(t, base+".vocabulary.external")
	require.FileExists(t, base+".prefixes")
	require.FileExists(t, base+".meta-data.json")

	vocab, err := vocabulary.Load(base + ".vocabulary.internal")
	require.NoError(t, err)
	sID, ok := vocab.GetID("<s>")
	require.True(t, ok)

	perm, err := compressedrelation.Load(base+".index.spo", base+".index.spo.meta")
	require.NoError(t, err)
	defer perm.Close()

	result, err := perm.Scan(context.Background(), []valueid.Id{valueid.MakeFromVocabIndex(sID)})
	require.NoError(t, err)
	require.Len(t, result, 1)
}

func TestBuildIndexOnlyPSOPOS(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "<s> <p> <o> .\n")
	base := filepath.Join(dir, "index")

	err := BuildIndex(BuildConfig{
		Base:        base,
		InputPath:   input,
		Format:      "nt",
		MemoryLimit: memsize.Megabytes(64),
		OnlyPSOPOS:  true,
	})
	require.NoError(t, err)

	require.FileExists(t, base+".index.pso")
	require.FileExists(t, base+".index.pos")
	require.NoFileExists(t, base+".index.spo")
}

func TestBlobRoundTrip(t *testing.T) {
	vocab := vocabulary.Build([]string{"<a>", "<b>", "hello"})
	named := cache.NewNamedResultCache()

	var buf bytes.Buffer
	require.NoError(t, SerializeToBlob(&buf, vocab, named, 3))

	gotVocab, gotNamed, err := DeserializeFromBlob(&buf)
	require.NoError(t, err)
	require.Equal(t, vocab.Size(), gotVocab.Size())
	_, ok := gotVocab.GetID("<a>")
	require.True(t, ok)
	_, ok = gotNamed.Get("anything")
	require.False(t, ok)
}

func TestDeserializeFromBlobRejectsBadMagic(t *testing.T) {
	_, _, err := DeserializeFromBlob(bytes.NewReader([]byte("not-a-blob-at-all-00000000")))
	require.Error(t, err)
}
