// Copyright 2025 The QLever Authors.
package compressedrelation

import (
	"context"
	"encoding/gob"
	"os"
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/edsrzf/mmap-go"
	"github.com/google/btree"
)

// State is the permutation's lifecycle stage (spec.md section 4.2:
// "unloaded, loaded, closed; transitions only happen at engine
// startup/shutdown").
type State int

const (
	Unloaded State = iota
	Loaded
	Closed
)

// Permutation is one read-only, memory-mapped sort order of the triple
// relation plus its in-memory block index.
type Permutation struct {
	mu      sync.RWMutex
	state   State
	numCols int
	file    *os.File
	data    mmap.MMap
	index   *btree.BTreeG[*BlockMetadata]
}

func blockLess(a, b *BlockMetadata) bool {
	c := valueid.CompareWithoutLocalVocab(a.FirstRow[0], b.FirstRow[0])
	if c != 0 {
		return c < 0
	}
	return a.ColumnOffsets[0] < b.ColumnOffsets[0]
}

// Load opens dataPath/metaPath, mmaps the data file, and builds the
// in-memory ordered block index. The permutation transitions
// Unloaded -> Loaded.
func Load(dataPath, metaPath string) (*Permutation, error) {
	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, errs.WrapCorruption(err, "compressedrelation: open metadata file")
	}
	defer mf.Close()
	var header relationHeader
	if err := gob.NewDecoder(mf).Decode(&header); err != nil {
		return nil, errs.WrapCorruption(err, "compressedrelation: decode metadata")
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, errs.WrapCorruption(err, "compressedrelation: open data file")
	}
	var data mmap.MMap
	if fi, statErr := f.Stat(); statErr == nil && fi.Size() > 0 {
		data, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, errs.WrapCorruption(err, "compressedrelation: mmap data file")
		}
	}

	index := btree.NewG[*BlockMetadata](32, blockLess)
	for _, b := range header.Blocks {
		index.ReplaceOrInsert(b)
	}

	return &Permutation{
		state:   Loaded,
		numCols: header.NumCols,
		file:    f,
		data:    data,
		index:   index,
	}, nil
}

// Close releases the mmap and underlying file handle, transitioning
// Loaded -> Closed. Further Scan calls fail.
func (p *Permutation) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Closed {
		return nil
	}
	p.state = Closed
	var firstErr error
	if p.data != nil {
		if err := p.data.Unmap(); err != nil {
			firstErr = err
		}
	}
	if err := p.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// candidateBlocks returns, in ascending order, every block whose key span
// could contain a row matching prefix[0] on the leading column. Blocks are
// split at leading-column boundaries, so normally exactly one block
// matches; a single value spanning multiple blocks yields several.
func (p *Permutation) candidateBlocks(prefix0 valueid.Id) []*BlockMetadata {
	pivot := &BlockMetadata{FirstRow: rows.Row{prefix0}, ColumnOffsets: []int64{0}}

	var start *BlockMetadata
	p.index.DescendLessOrEqual(pivot, func(item *BlockMetadata) bool {
		start = item
		return false
	})
	if start == nil {
		// Every block's FirstRow[0] is greater than prefix0; the first
		// block in ascending order is still a candidate only if its
		// LastRow[0] somehow precedes it, which cannot happen, so there is
		// no match.
		var first *BlockMetadata
		p.index.Ascend(func(item *BlockMetadata) bool {
			first = item
			return false
		})
		if first == nil || valueid.CompareWithoutLocalVocab(first.FirstRow[0], prefix0) != 0 {
			return nil
		}
		start = first
	}

	var out []*BlockMetadata
	p.index.AscendGreaterOrEqual(start, func(item *BlockMetadata) bool {
		if valueid.CompareWithoutLocalVocab(item.FirstRow[0], prefix0) > 0 {
			return false
		}
		if valueid.CompareWithoutLocalVocab(item.LastRow[0], prefix0) >= 0 {
			out = append(out, item)
		}
		return true
	})
	return out
}

func (p *Permutation) readColumn(meta *BlockMetadata, col int) ([]valueid.Id, error) {
	off, size := meta.ColumnOffsets[col], meta.ColumnSizes[col]
	if p.data == nil || off+size > int64(len(p.data)) {
		return nil, errs.Corruption("compressedrelation: column segment out of bounds")
	}
	return decodeColumn(p.data[off:off+size], meta.NumRows)
}

func (p *Permutation) decodeBlock(meta *BlockMetadata) ([]rows.Row, error) {
	cols := make([][]valueid.Id, p.numCols)
	for c := 0; c < p.numCols; c++ {
		col, err := p.readColumn(meta, c)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	out := make([]rows.Row, meta.NumRows)
	for r := 0; r < meta.NumRows; r++ {
		row := make(rows.Row, p.numCols)
		for c := 0; c < p.numCols; c++ {
			row[c] = cols[c][r]
		}
		out[r] = row
	}
	return out, nil
}

// checkCancel polls ctx and translates cancellation into spec.md section
// 7's CancellationError.
func checkCancel(ctx context.Context, operator string) error {
	if err := ctx.Err(); err != nil {
		return errs.Cancellation(operator)
	}
	return nil
}

// pollEveryNRows is the row-granularity cancellation-polling interval used
// while iterating within a block (spec.md section 4.2: "at every block
// boundary and at configured basic-operation intervals").
const pollEveryNRows = 1 << 16

// Scan returns every row whose columns match prefix exactly on the
// positions given (prefix may have 1 to numCols entries; a shorter prefix
// means the remaining columns are wildcards). Cancellation is polled at
// every block boundary and every pollEveryNRows rows within a block.
func (p *Permutation) Scan(ctx context.Context, prefix []valueid.Id) ([]rows.Row, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	errs.Invariant(p.state == Loaded, "compressedrelation: Scan on a permutation that is not Loaded")
	if len(prefix) == 0 || len(prefix) > p.numCols {
		return nil, errs.Parse("compressedrelation: scan prefix length %d out of range [1,%d]", len(prefix), p.numCols)
	}

	candidates := p.candidateBlocks(prefix[0])
	var out []rows.Row
	for _, meta := range candidates {
		if err := checkCancel(ctx, "compressedrelation.Scan"); err != nil {
			return nil, err
		}
		blockRows, err := p.decodeBlock(meta)
		if err != nil {
			return nil, err
		}
		for i, row := range blockRows {
			if i%pollEveryNRows == 0 {
				if err := checkCancel(ctx, "compressedrelation.Scan"); err != nil {
					return nil, err
				}
			}
			if rowMatchesPrefix(row, prefix) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func rowMatchesPrefix(row rows.Row, prefix []valueid.Id) bool {
	for c, v := range prefix {
		if valueid.CompareWithoutLocalVocab(row[c], v) != 0 {
			return false
		}
	}
	return true
}

// SizeEstimate returns [lower, upper] bounds on the number of rows
// matching prefix, derived purely from block metadata (no decompression).
// lower counts only blocks whose entire leading-column span equals
// prefix[0] exactly (so every row in the block is a candidate); upper
// counts every row in every candidate block.
func (p *Permutation) SizeEstimate(prefix0 valueid.Id) (lower, upper uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, meta := range p.candidateBlocks(prefix0) {
		upper += uint64(meta.NumRows)
		if valueid.CompareWithoutLocalVocab(meta.FirstRow[0], prefix0) == 0 &&
			valueid.CompareWithoutLocalVocab(meta.LastRow[0], prefix0) == 0 {
			lower += uint64(meta.NumRows)
		}
	}
	return lower, upper
}

// State reports the permutation's current lifecycle state.
func (p *Permutation) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}
