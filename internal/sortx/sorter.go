// Copyright 2025 The QLever Authors.
package sortx

import (
	"bufio"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/mathx"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/qlog"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/google/uuid"
)

var log = qlog.New("sortx")

// bytesPerID is the on-disk width of a single valueid.Id, fixed-size for
// direct binary.Read/Write without a separate length prefix.
const bytesPerID = 8

// Sorter is the external, memory-bounded row sorter used to build the
// SPO permutation and materialized views (spec.md section 4.3). Rows are
// buffered in memory until the configured budget is exhausted, at which
// point the buffer is sorted and spilled to a temp file as a "run"; once
// the caller is done pushing, GetSortedBlocks performs a lazy k-way merge
// of the spilled runs (and any still-buffered rows) via a comparator heap.
//
// A Sorter is single-use: once GetSortedBlocks has been called, further
// Push calls are an internal invariant violation, matching the original
// engine's CompressedExternalIdTableSorter contract.
type Sorter struct {
	numCols    int
	cmp        Comparator
	allocator  *alloc.Allocator
	tmpDir     string
	buf        []rows.Row
	bufBytes   memsize.Size
	runs       []string
	finalized  bool
	cleanedUp  bool
}

// New creates a Sorter that spills to tmpDir (created if absent) once the
// allocator's budget is exceeded, comparing rows with cmp.
func New(numCols int, cmp Comparator, allocator *alloc.Allocator, tmpDir string) (*Sorter, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, errs.WrapCorruption(err, "sortx: create tmp dir")
	}
	s := &Sorter{numCols: numCols, cmp: cmp, allocator: allocator, tmpDir: tmpDir}

	// Preallocate the in-memory row buffer to roughly how many rows fit in
	// the allocator's current headroom, so the common case of never
	// spilling doesn't also pay for repeated slice growth. Remaining() can
	// be memsize.Max() for an unlimited allocator, so the row count is
	// capped in uint64 space before it ever becomes an int.
	const maxPreallocRows = 1 << 20
	rowSize := s.rowBytes().Bytes()
	if rowSize > 0 {
		remaining := allocator.Remaining().Bytes()
		if remaining > maxPreallocRows*rowSize {
			remaining = maxPreallocRows * rowSize
		}
		capHint := mathx.CeilDiv(int(remaining), int(rowSize))
		s.buf = make([]rows.Row, 0, capHint)
	}
	return s, nil
}

func (s *Sorter) rowBytes() memsize.Size {
	return memsize.Bytes(uint64(s.numCols*bytesPerID) + 48) // + slice header & alloc overhead estimate
}

// Push appends a single row to the sorter, spilling the current buffer to
// disk first if the row would not fit in the remaining memory budget.
func (s *Sorter) Push(row rows.Row) error {
	errs.Invariant(!s.finalized, "sortx: Push after GetSortedBlocks")
	if len(row) != s.numCols {
		return errs.Parse("sortx: pushed row has %d columns, want %d", len(row), s.numCols)
	}
	need := s.rowBytes()
	if err := s.allocator.Reserve(need); err != nil {
		if !errs.Is(err, errs.KindAllocationExceedsLimit) {
			return err
		}
		if spillErr := s.spill(); spillErr != nil {
			return spillErr
		}
		if err := s.allocator.Reserve(need); err != nil {
			return err
		}
	}
	s.buf = append(s.buf, row.Clone())
	s.bufBytes = s.bufBytes.Add(need)
	return nil
}

// PushBlock pushes every row of a block in order.
func (s *Sorter) PushBlock(block []rows.Row) error {
	for _, r := range block {
		if err := s.Push(r); err != nil {
			return err
		}
	}
	return nil
}

// spill sorts the in-memory buffer and writes it to a new run file,
// releasing the reserved memory back to the allocator.
func (s *Sorter) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	parallelSort(s.buf, s.cmp)

	path := filepath.Join(s.tmpDir, fmt.Sprintf("run-%s.dat", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return errs.WrapCorruption(err, "sortx: create run file")
	}
	w := bufio.NewWriter(f)
	for _, r := range s.buf {
		if err := writeRow(w, r); err != nil {
			f.Close()
			return errs.WrapCorruption(err, "sortx: write run")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errs.WrapCorruption(err, "sortx: flush run")
	}
	if err := f.Close(); err != nil {
		return errs.WrapCorruption(err, "sortx: close run")
	}

	s.allocator.Release(s.bufBytes)
	log.Debug("spilled run", "path", path, "numRows", len(s.buf))
	s.runs = append(s.runs, path)
	s.buf = nil
	s.bufBytes = memsize.Bytes(0)
	return nil
}

// parallelSort sorts buf in place using a goroutine-sharded merge sort:
// the buffer is split into GOMAXPROCS contiguous shards, each shard is
// sorted concurrently, and the sorted shards are then merged via the
// same k-way heap used for spilled runs (spec.md section 4.3: "sort the
// buffer with a parallel sort").
func parallelSort(buf []rows.Row, cmp Comparator) {
	n := len(buf)
	if n < 2 {
		return
	}
	shards := runtime.GOMAXPROCS(0)
	if shards > n {
		shards = n
	}
	if shards < 2 {
		sort.Slice(buf, func(i, j int) bool { return cmp(buf[i], buf[j]) })
		return
	}

	chunkSize := mathx.CeilDiv(n, shards)
	type bound struct{ start, end int }
	var bounds []bound
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		bounds = append(bounds, bound{start, end})
	}

	var wg sync.WaitGroup
	wg.Add(len(bounds))
	for _, b := range bounds {
		b := b
		go func() {
			defer wg.Done()
			chunk := buf[b.start:b.end]
			sort.Slice(chunk, func(i, j int) bool { return cmp(chunk[i], chunk[j]) })
		}()
	}
	wg.Wait()

	type cursor struct {
		rows []rows.Row
		pos  int
	}
	cursors := make([]*cursor, len(bounds))
	for i, b := range bounds {
		cursors[i] = &cursor{rows: buf[b.start:b.end]}
	}

	h := mergeHeap{cmp: cmp}
	for i, c := range cursors {
		if len(c.rows) > 0 {
			h.items = append(h.items, heapItem{row: c.rows[0], srcIdx: i})
		}
	}
	heap.Init(&h)

	merged := make([]rows.Row, 0, n)
	for h.Len() > 0 {
		top := heap.Pop(&h).(heapItem)
		merged = append(merged, top.row)
		c := cursors[top.srcIdx]
		c.pos++
		if c.pos < len(c.rows) {
			heap.Push(&h, heapItem{row: c.rows[c.pos], srcIdx: top.srcIdx})
		}
	}
	copy(buf, merged)
}

func writeRow(w io.Writer, row rows.Row) error {
	buf := make([]byte, bytesPerID)
	for _, id := range row {
		binary.LittleEndian.PutUint64(buf, uint64(id))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func readRow(r io.Reader, numCols int, into rows.Row) (rows.Row, error) {
	buf := make([]byte, bytesPerID)
	if into == nil {
		into = make(rows.Row, numCols)
	}
	for i := 0; i < numCols; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		into[i] = valueid.Id(binary.LittleEndian.Uint64(buf))
	}
	return into, nil
}

// GetSortedBlocks finalizes the sorter (no further Push is permitted) and
// returns a MergeIterator yielding rows in comparator order across all
// spilled runs plus any still-buffered rows, performing a lazy k-way merge
// so the full sorted sequence is never fully materialized in memory.
func (s *Sorter) GetSortedBlocks() (*MergeIterator, error) {
	errs.Invariant(!s.finalized, "sortx: GetSortedBlocks called twice")
	s.finalized = true

	if len(s.buf) > 0 {
		parallelSort(s.buf, s.cmp)
	}

	m := &MergeIterator{numCols: s.numCols, cmp: s.cmp, sorter: s}
	if len(s.buf) > 0 {
		m.sources = append(m.sources, &memSource{rows: s.buf})
	}
	for _, path := range s.runs {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.WrapCorruption(err, "sortx: open run")
		}
		m.sources = append(m.sources, &fileSource{f: f, r: bufio.NewReader(f), numCols: s.numCols})
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

// Close removes all spilled run files. Safe to call multiple times and
// safe to call even if GetSortedBlocks was never invoked.
func (s *Sorter) Close() error {
	if s.cleanedUp {
		return nil
	}
	s.cleanedUp = true
	if len(s.buf) > 0 {
		s.allocator.Release(s.bufBytes)
		s.buf = nil
	}
	var firstErr error
	for _, path := range s.runs {
		if err := os.Remove(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// source is one input to the k-way merge: either the still-buffered rows
// (memSource) or a spilled run file (fileSource).
type source interface {
	next() (rows.Row, error) // io.EOF when exhausted
	close() error
}

type memSource struct {
	rows []rows.Row
	pos  int
}

func (m *memSource) next() (rows.Row, error) {
	if m.pos >= len(m.rows) {
		return nil, io.EOF
	}
	r := m.rows[m.pos]
	m.pos++
	return r, nil
}

func (m *memSource) close() error { return nil }

type fileSource struct {
	f       *os.File
	r       *bufio.Reader
	numCols int
}

func (fs *fileSource) next() (rows.Row, error) {
	return readRow(fs.r, fs.numCols, nil)
}

func (fs *fileSource) close() error { return fs.f.Close() }

// heapItem pairs a peeked row with the source index it came from, for the
// container/heap-based k-way merge.
type heapItem struct {
	row    rows.Row
	srcIdx int
}

type mergeHeap struct {
	items []heapItem
	cmp   Comparator
}

func (h *mergeHeap) Len() int            { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool  { return h.cmp(h.items[i].row, h.items[j].row) }
func (h *mergeHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x any)          { h.items = append(h.items, x.(heapItem)) }
func (h *mergeHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// MergeIterator lazily yields rows in sorted order across every source via
// a standard k-way merge heap, so memory use stays O(numSources) regardless
// of total row count (spec.md section 4.3: "iterator-based lazy block
// streams" replacing the original's coroutine generators).
type MergeIterator struct {
	numCols int
	cmp     Comparator
	sorter  *Sorter
	sources []source
	h       mergeHeap
}

func (m *MergeIterator) init() error {
	m.h = mergeHeap{cmp: m.cmp}
	for i, src := range m.sources {
		row, err := src.next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return errs.WrapCorruption(err, "sortx: read run")
		}
		heap.Push(&m.h, heapItem{row: row, srcIdx: i})
	}
	heap.Init(&m.h)
	return nil
}

// Next returns the next row in sorted order, or (nil, io.EOF) once
// exhausted.
func (m *MergeIterator) Next() (rows.Row, error) {
	if m.h.Len() == 0 {
		return nil, io.EOF
	}
	top := heap.Pop(&m.h).(heapItem)
	nextRow, err := m.sources[top.srcIdx].next()
	if err == nil {
		heap.Push(&m.h, heapItem{row: nextRow, srcIdx: top.srcIdx})
	} else if err != io.EOF {
		return nil, errs.WrapCorruption(err, "sortx: read run")
	}
	return top.row, nil
}

// Close releases every source and the underlying Sorter's run files.
func (m *MergeIterator) Close() error {
	var firstErr error
	for _, src := range m.sources {
		if err := src.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.sorter.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
