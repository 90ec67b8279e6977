// Copyright 2025 The QLever Authors.
package compressedrelation

import (
	"context"
	"io"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// RowIterator pulls matching rows one at a time, decoding each candidate
// block only as the caller asks for it, so an operator whose output feeds
// a sorter or another large producer never has to materialize an entire
// scan result up front (spec.md section 4.2's lazy block generator,
// mirroring sortx.MergeIterator's pull shape).
type RowIterator struct {
	p        *Permutation
	ctx      context.Context
	prefix   []valueid.Id
	blocks   []*BlockMetadata
	blockIdx int
	cur      []rows.Row
	pos      int
	rowCount int
}

// ScanStream returns a RowIterator over every row matching prefix without
// materializing the whole scan result up front. Candidate blocks are
// resolved eagerly from the in-memory index (cheap: metadata only); each
// block's rows are decoded lazily as Next is called.
func (p *Permutation) ScanStream(ctx context.Context, prefix []valueid.Id) (*RowIterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	errs.Invariant(p.state == Loaded, "compressedrelation: ScanStream on a permutation that is not Loaded")
	if len(prefix) == 0 || len(prefix) > p.numCols {
		return nil, errs.Parse("compressedrelation: scan prefix length %d out of range [1,%d]", len(prefix), p.numCols)
	}
	return &RowIterator{
		p:      p,
		ctx:    ctx,
		prefix: prefix,
		blocks: p.candidateBlocks(prefix[0]),
	}, nil
}

// Next returns the next matching row, or (nil, io.EOF) once every
// candidate block has been exhausted. Cancellation is polled at every
// block boundary and every pollEveryNRows rows within a block, matching
// Scan's eager path.
func (it *RowIterator) Next() (rows.Row, error) {
	for {
		if it.cur != nil && it.pos < len(it.cur) {
			row := it.cur[it.pos]
			it.pos++
			it.rowCount++
			if it.rowCount%pollEveryNRows == 0 {
				if err := checkCancel(it.ctx, "compressedrelation.ScanStream"); err != nil {
					return nil, err
				}
			}
			if rowMatchesPrefix(row, it.prefix) {
				return row, nil
			}
			continue
		}
		if it.blockIdx >= len(it.blocks) {
			return nil, io.EOF
		}
		if err := checkCancel(it.ctx, "compressedrelation.ScanStream"); err != nil {
			return nil, err
		}
		blockRows, err := it.decodeNextBlock()
		if err != nil {
			return nil, err
		}
		it.cur = blockRows
		it.pos = 0
	}
}

// decodeNextBlock decodes the next candidate block under the permutation's
// read lock, so a concurrent Close cannot unmap the data file out from
// under an in-flight streaming scan.
func (it *RowIterator) decodeNextBlock() ([]rows.Row, error) {
	it.p.mu.RLock()
	defer it.p.mu.RUnlock()
	if it.p.state != Loaded {
		return nil, errs.Corruption("compressedrelation: ScanStream permutation closed mid-iteration")
	}
	blockRows, err := it.p.decodeBlock(it.blocks[it.blockIdx])
	if err != nil {
		return nil, err
	}
	it.blockIdx++
	return blockRows, nil
}
