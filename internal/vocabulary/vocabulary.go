// Copyright 2025 The QLever Authors.
//
// Package vocabulary implements the string<->VocabIndex bijection from
// spec.md section 4.1: a read-only, on-disk vocabulary built once during
// indexing, plus a per-query LocalVocab for strings produced during
// evaluation (e.g. GROUP_CONCAT results).
package vocabulary

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// Vocabulary maps strings (IRIs, literals) to VocabIndex and back. The
// only contract on the core engine is the string<->id bijection plus an
// ordering compatible with valueid.CompareWithoutLocalVocab: concrete
// representations (prefix compression, on-disk vs in-memory, case
// folding) are implementation freedom, per spec.md section 4.1.
type Vocabulary interface {
	GetID(s string) (valueid.VocabIndexType, bool)
	IndexToString(idx valueid.VocabIndexType) (string, bool)
	Size() int
}

// SortedVocabulary is a simple, read-only, in-memory implementation: a
// lexicographically sorted string slice plus a map for the reverse
// lookup. It is the representation produced by indexing and loaded
// read-only at query time (Load reads the whole file into memory; the
// engine never mutates it after Build).
type SortedVocabulary struct {
	strings []string
	index   map[string]valueid.VocabIndexType
}

// Build constructs a SortedVocabulary from an arbitrary set of strings,
// assigning VocabIndex values in sorted order so that
// valueid.CompareWithoutLocalVocab agrees with the engine's string order.
func Build(strs []string) *SortedVocabulary {
	unique := make(map[string]struct{}, len(strs))
	for _, s := range strs {
		unique[s] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for s := range unique {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	index := make(map[string]valueid.VocabIndexType, len(sorted))
	for i, s := range sorted {
		index[s] = valueid.VocabIndexType(i)
	}
	return &SortedVocabulary{strings: sorted, index: index}
}

func (v *SortedVocabulary) GetID(s string) (valueid.VocabIndexType, bool) {
	idx, ok := v.index[s]
	return idx, ok
}

func (v *SortedVocabulary) IndexToString(idx valueid.VocabIndexType) (string, bool) {
	if int(idx) < 0 || int(idx) >= len(v.strings) {
		return "", false
	}
	return v.strings[idx], true
}

func (v *SortedVocabulary) Size() int { return len(v.strings) }

// WriteTo persists the vocabulary as one string per line, sorted, to the
// given path (mirrors <B>.vocabulary.internal / .external's role as a
// plain string dictionary, per spec.md section 6).
func (v *SortedVocabulary) WriteTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vocabulary: create %s: %w", path, err)
	}
	defer f.Close()
	if err := v.WriteAll(f); err != nil {
		return err
	}
	return f.Sync()
}

// WriteAll writes the same one-string-per-line encoding WriteTo uses to
// an arbitrary writer, letting callers embed a vocabulary in a larger
// stream (the serialized blob format, spec.md section 6) without an
// intermediate file.
func (v *SortedVocabulary) WriteAll(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range v.strings {
		if _, err := bw.WriteString(s); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads back a vocabulary written by WriteTo. Because the file is
// written in sorted order, VocabIndex assignment (line number) is
// preserved exactly.
func Load(path string) (*SortedVocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: open %s: %w", path, err)
	}
	defer f.Close()
	v, err := LoadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: reading %s: %w", path, err)
	}
	return v, nil
}

// LoadFrom reads the WriteAll encoding back from an arbitrary reader.
func LoadFrom(r io.Reader) (*SortedVocabulary, error) {
	var strs []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		strs = append(strs, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	index := make(map[string]valueid.VocabIndexType, len(strs))
	for i, s := range strs {
		index[s] = valueid.VocabIndexType(i)
	}
	return &SortedVocabulary{strings: strs, index: index}, nil
}

// LocalVocab holds strings produced during query evaluation (e.g.
// GROUP_CONCAT results), referenced by LocalVocabIndex ids that are only
// valid within the owning result (spec.md section 3). It is ref-counted
// (Design Note: shared-ownership of result tables across cache and
// consumer) so a LocalVocab outlives its producing operator exactly as
// long as a cached or parent-owned result references it.
type LocalVocab struct {
	mu      sync.Mutex
	strs    []string
	index   map[string]valueid.LocalVocabIndexType
	refs    int32
}

// NewLocalVocab returns an empty, single-owner LocalVocab.
func NewLocalVocab() *LocalVocab {
	return &LocalVocab{index: make(map[string]valueid.LocalVocabIndexType), refs: 1}
}

// GetOrAdd interns s, returning its (possibly newly assigned) index.
func (lv *LocalVocab) GetOrAdd(s string) valueid.LocalVocabIndexType {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if idx, ok := lv.index[s]; ok {
		return idx
	}
	idx := valueid.LocalVocabIndexType(len(lv.strs))
	lv.strs = append(lv.strs, s)
	lv.index[s] = idx
	return idx
}

// Get resolves a LocalVocabIndex back to its string.
func (lv *LocalVocab) Get(idx valueid.LocalVocabIndexType) (string, bool) {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if int(idx) < 0 || int(idx) >= len(lv.strs) {
		return "", false
	}
	return lv.strs[idx], true
}

// Empty reports whether the LocalVocab has any entries; the materialized
// view writer rejects any result block whose LocalVocab is non-empty
// (spec.md section 4.5).
func (lv *LocalVocab) Empty() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return len(lv.strs) == 0
}

// AddRef increments the reference count when a result (and its
// LocalVocab) is shared with a parent operator or the result cache.
func (lv *LocalVocab) AddRef() { atomicAdd(&lv.refs, 1) }

// Release decrements the reference count, returning true once it reaches
// zero (at which point the LocalVocab should be dropped).
func (lv *LocalVocab) Release() bool { return atomicAdd(&lv.refs, -1) == 0 }

// CompareLocal orders two ids using actual string contents wherever a
// LocalVocabIndex is involved, resolving against lv. This is the "full"
// comparison mentioned in spec.md section 4.1, usable only where the
// LocalVocab is available (never when producing on-disk bytes).
func CompareLocal(lv *LocalVocab, a, b valueid.Id) int {
	da, db := a.Datatype(), b.Datatype()
	if da == valueid.LocalVocabIndex && db == valueid.LocalVocabIndex {
		as, _ := lv.Get(a.GetLocalVocabIndex())
		bs, _ := lv.Get(b.GetLocalVocabIndex())
		return bytes.Compare([]byte(as), []byte(bs))
	}
	return valueid.CompareWithoutLocalVocab(a, b)
}
