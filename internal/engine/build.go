// Copyright 2025 The QLever Authors.
package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/compressedrelation"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/qlog"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/sortx"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
)

var log = qlog.New("engine")

const numColumns = 4 // subject, predicate, object, graph

// permutationLayout is one (on-disk suffix, sort key) pair out of the six
// spec.md section 4.2 names.
type permutationLayout struct {
	suffix string
	cmp    sortx.Comparator
}

var allPermutationLayouts = []permutationLayout{
	{"spo", sortx.KeyOrder(0, 1, 2, 3)},
	{"sop", sortx.KeyOrder(0, 2, 1, 3)},
	{"pso", sortx.KeyOrder(1, 0, 2, 3)},
	{"pos", sortx.KeyOrder(1, 2, 0, 3)},
	{"osp", sortx.KeyOrder(2, 0, 1, 3)},
	{"ops", sortx.KeyOrder(2, 1, 0, 3)},
}

// BuildConfig enumerates everything buildIndex needs, mirroring the
// library surface named in spec.md section 6: input file + file-type,
// base name, memory limit, and the two build-time flags the original
// exposes (only-PSO-POS, no-patterns). Text-index parameters are not
// modeled (the text/full-text index is out of spec.md's scope).
type BuildConfig struct {
	Base          string
	InputPath     string
	Format        string // "nt", "ttl", or "nq" — all read through the same line parser, see ntriples.go
	MemoryLimit   memsize.Size
	KeepTempFiles bool
	OnlyPSOPOS    bool // spec.md section 9: flagged as possibly broken for updates; build-only here
	NoPatterns    bool // accepted for CLI compatibility; no patterns index is built regardless (out of scope)
}

// indexMetadata is the persisted contents of <base>.meta-data.json.
type indexMetadata struct {
	NumTriples   int      `json:"numTriples"`
	VocabSize    int      `json:"vocabSize"`
	Permutations []string `json:"permutations"`
	OnlyPSOPOS   bool     `json:"onlyPsoAndPos"`
	NoPatterns   bool     `json:"noPatterns"`
}

// ReadMetadata reads back the <base>.meta-data.json file BuildIndex
// wrote, returning the triple count recorded for the index.
func ReadMetadata(base string) (numTriples int, err error) {
	data, err := os.ReadFile(base + ".meta-data.json")
	if err != nil {
		return 0, fmt.Errorf("engine: reading meta-data.json: %w", err)
	}
	var md indexMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return 0, fmt.Errorf("engine: decoding meta-data.json: %w", err)
	}
	return md.NumTriples, nil
}

// BuildIndex reads cfg.InputPath, builds the vocabulary, and writes every
// configured permutation plus the sidecar files spec.md section 6 lists
// under "Persisted state".
func BuildIndex(cfg BuildConfig) error {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("engine: opening %s: %w", cfg.InputPath, err)
	}
	quads, err := parseNTriples(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	log.Info("parsed input triples", "count", len(quads), "format", cfg.Format)

	vocab, terms := buildVocabulary(quads)
	log.Info("built vocabulary", "size", vocab.Size())

	table := rows.NewDynamicTable(numColumns)
	for _, q := range quads {
		table.AppendRow([]valueid.Id{
			encodeTerm(q.Subject, vocab, terms),
			encodeTerm(q.Predicate, vocab, terms),
			encodeTerm(q.Object, vocab, terms),
			encodeTerm(q.Graph, vocab, terms),
		})
	}

	layouts := allPermutationLayouts
	if cfg.OnlyPSOPOS {
		layouts = nil
		for _, l := range allPermutationLayouts {
			if l.suffix == "pso" || l.suffix == "pos" {
				layouts = append(layouts, l)
			}
		}
	}

	allocator := alloc.New(alloc.NewBudget(cfg.MemoryLimit))
	tmpDir := cfg.Base + ".tmp"
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("engine: creating temp dir: %w", err)
	}
	if !cfg.KeepTempFiles {
		defer os.RemoveAll(tmpDir)
	}

	var written []string
	for _, layout := range layouts {
		log.Info("writing permutation", "name", layout.suffix)
		if err := writePermutation(cfg.Base, layout, table, allocator, tmpDir); err != nil {
			return fmt.Errorf("engine: writing %s permutation: %w", layout.suffix, err)
		}
		written = append(written, layout.suffix)
	}

	if err := vocab.WriteTo(cfg.Base + ".vocabulary.internal"); err != nil {
		return err
	}
	if err := vocab.WriteTo(cfg.Base + ".vocabulary.external"); err != nil {
		return err
	}
	if err := writePrefixes(cfg.Base, terms); err != nil {
		return err
	}

	md := indexMetadata{
		NumTriples:   table.NumRows(),
		VocabSize:    vocab.Size(),
		Permutations: written,
		OnlyPSOPOS:   cfg.OnlyPSOPOS,
		NoPatterns:   cfg.NoPatterns,
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: encoding meta-data.json: %w", err)
	}
	if err := os.WriteFile(cfg.Base+".meta-data.json", data, 0o644); err != nil {
		return fmt.Errorf("engine: writing meta-data.json: %w", err)
	}
	log.Info("index build complete", "base", cfg.Base, "triples", md.NumTriples)
	return nil
}

func writePermutation(base string, layout permutationLayout, table rows.Table, allocator *alloc.Allocator, tmpDir string) error {
	sorter, err := sortx.New(numColumns, layout.cmp, allocator, filepath.Join(tmpDir, layout.suffix))
	if err != nil {
		return err
	}
	defer sorter.Close()

	block := make([]rows.Row, 0, table.NumRows())
	for r := 0; r < table.NumRows(); r++ {
		row := make(rows.Row, numColumns)
		for c := 0; c < numColumns; c++ {
			row[c] = table.At(r, c)
		}
		block = append(block, row)
	}
	if err := sorter.PushBlock(block); err != nil {
		return err
	}

	merge, err := sorter.GetSortedBlocks()
	if err != nil {
		return err
	}
	defer merge.Close()

	dataPath := base + ".index." + layout.suffix
	metaPath := dataPath + ".meta"
	relWriter, err := compressedrelation.NewRelationWriter(dataPath, numColumns, 8<<20)
	if err != nil {
		return err
	}
	for {
		row, err := merge.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := relWriter.PushRow(row); err != nil {
			return err
		}
	}
	return relWriter.Close(metaPath)
}

// buildVocabulary collects every non-numeric term (including the empty
// string standing for the unnamed default graph) across quads into a
// SortedVocabulary, returning the set so encodeTerm can distinguish a
// vocabulary term from an integer literal deterministically.
func buildVocabulary(quads []Quad) (*vocabulary.SortedVocabulary, map[string]struct{}) {
	terms := make(map[string]struct{})
	for _, q := range quads {
		for _, t := range []string{q.Subject, q.Predicate, q.Object, q.Graph} {
			if !isBareInteger(t) {
				terms[t] = struct{}{}
			}
		}
	}
	strs := make([]string, 0, len(terms))
	for t := range terms {
		strs = append(strs, t)
	}
	sort.Strings(strs)
	return vocabulary.Build(strs), terms
}

func encodeTerm(t string, vocab *vocabulary.SortedVocabulary, terms map[string]struct{}) valueid.Id {
	if _, ok := terms[t]; !ok {
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return valueid.MakeFromInt(n)
		}
	}
	idx, ok := vocab.GetID(t)
	if !ok {
		// Only reachable for malformed input where a term was classified
		// as a vocabulary string but somehow missing; fall back to the
		// default graph's own encoding.
		idx, _ = vocab.GetID("")
	}
	return valueid.MakeFromVocabIndex(idx)
}

func isBareInteger(t string) bool {
	if t == "" {
		return false
	}
	_, err := strconv.ParseInt(t, 10, 64)
	return err == nil
}

// writePrefixes emits an advisory list of common IRI scheme/namespace
// prefixes seen in the vocabulary (grouped at the last '/' or '#'),
// mirroring the role of <B>.prefixes in spec.md's persisted-state layout.
// Nothing in this module reads the file back; it is metadata for
// external tooling, matching spec.md's silence on an exact consumed
// format.
func writePrefixes(base string, terms map[string]struct{}) error {
	counts := make(map[string]int)
	for t := range terms {
		if !strings.HasPrefix(t, "<") {
			continue
		}
		iri := strings.TrimSuffix(strings.TrimPrefix(t, "<"), ">")
		cut := strings.LastIndexAny(iri, "/#")
		if cut <= 0 {
			continue
		}
		counts[iri[:cut+1]]++
	}
	prefixes := make([]string, 0, len(counts))
	for p := range counts {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if counts[prefixes[i]] != counts[prefixes[j]] {
			return counts[prefixes[i]] > counts[prefixes[j]]
		}
		return prefixes[i] < prefixes[j]
	})

	f, err := os.Create(base + ".prefixes")
	if err != nil {
		return fmt.Errorf("engine: writing prefixes file: %w", err)
	}
	defer f.Close()
	for _, p := range prefixes {
		if _, err := fmt.Fprintln(f, p); err != nil {
			return err
		}
	}
	return nil
}
