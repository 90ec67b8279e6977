// Copyright 2025 The QLever Authors.
package compressedrelation

import (
	"bufio"
	"encoding/gob"
	"os"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/qlog"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

var log = qlog.New("compressedrelation")

// RelationWriter builds one permutation file from a lazily-produced,
// already-sorted stream of rows (spec.md section 4.2's write path). The
// caller is responsible for feeding rows in the target key order, e.g.
// via sortx.MergeIterator.
type RelationWriter struct {
	numCols   int
	blockTarget int // uncompressed bytes per block, approximate
	dataFile  *os.File
	dataW     *bufio.Writer
	offset    int64
	buf       []rows.Row
	bufBytes  int
	metadata  []*BlockMetadata
	closed    bool
}

// NewRelationWriter creates the permutation's data file at dataPath,
// truncating any existing content. blockByteTarget is the approximate
// uncompressed size (spec.md: "a few MB" is typical) at which a block is
// finalized, subject to the leading-column split rule.
func NewRelationWriter(dataPath string, numCols int, blockByteTarget int) (*RelationWriter, error) {
	f, err := os.Create(dataPath)
	if err != nil {
		return nil, errs.WrapCorruption(err, "compressedrelation: create data file")
	}
	return &RelationWriter{
		numCols:     numCols,
		blockTarget: blockByteTarget,
		dataFile:    f,
		dataW:       bufio.NewWriter(f),
	}, nil
}

// PushRow appends one row. Rows must arrive already sorted by the target
// key order; PushRow finalizes the current block once its uncompressed
// size has reached blockByteTarget AND the leading column's value is
// about to change, so that "a single value's rows must not straddle two
// blocks unless the value alone exceeds the block budget" (spec.md
// section 4.2).
func (w *RelationWriter) PushRow(row rows.Row) error {
	errs.Invariant(!w.closed, "compressedrelation: PushRow after Close")
	if len(w.buf) > 0 && w.bufBytes >= w.blockTarget {
		leadChanged := valueid.CompareWithoutLocalVocab(row[0], w.buf[len(w.buf)-1][0]) != 0
		if leadChanged {
			if err := w.finalizeBlock(); err != nil {
				return err
			}
		}
	}
	w.buf = append(w.buf, row.Clone())
	w.bufBytes += w.numCols * bytesPerID
	return nil
}

// PushBlock pushes a contiguous run of pre-sorted rows.
func (w *RelationWriter) PushBlock(rowsIn []rows.Row) error {
	for _, r := range rowsIn {
		if err := w.PushRow(r); err != nil {
			return err
		}
	}
	return nil
}

func (w *RelationWriter) finalizeBlock() error {
	if len(w.buf) == 0 {
		return nil
	}
	meta := &BlockMetadata{
		FirstRow:      w.buf[0].Clone(),
		LastRow:       w.buf[len(w.buf)-1].Clone(),
		ColumnRanges:  columnRanges(w.buf, w.numCols),
		NumRows:       len(w.buf),
		ColumnOffsets: make([]int64, w.numCols),
		ColumnSizes:   make([]int64, w.numCols),
	}
	for c := 0; c < w.numCols; c++ {
		col := make([]valueid.Id, len(w.buf))
		for i, r := range w.buf {
			col[i] = r[c]
		}
		compressed, err := encodeColumn(col)
		if err != nil {
			return errs.WrapCorruption(err, "compressedrelation: compress column %d", c)
		}
		meta.ColumnOffsets[c] = w.offset
		meta.ColumnSizes[c] = int64(len(compressed))
		n, err := w.dataW.Write(compressed)
		if err != nil {
			return errs.WrapCorruption(err, "compressedrelation: write column %d", c)
		}
		w.offset += int64(n)
	}
	w.metadata = append(w.metadata, meta)
	log.Debug("finalized block", "numRows", meta.NumRows, "leadingValue", meta.FirstRow[0])
	w.buf = nil
	w.bufBytes = 0
	return nil
}

// Close finalizes any remaining buffered rows, flushes and closes the
// data file, and writes the gob-encoded metadata sidecar to metaPath.
func (w *RelationWriter) Close(metaPath string) error {
	errs.Invariant(!w.closed, "compressedrelation: Close called twice")
	w.closed = true
	if err := w.finalizeBlock(); err != nil {
		return err
	}
	if err := w.dataW.Flush(); err != nil {
		return errs.WrapCorruption(err, "compressedrelation: flush data file")
	}
	if err := w.dataFile.Close(); err != nil {
		return errs.WrapCorruption(err, "compressedrelation: close data file")
	}
	mf, err := os.Create(metaPath)
	if err != nil {
		return errs.WrapCorruption(err, "compressedrelation: create metadata file")
	}
	defer mf.Close()
	header := relationHeader{NumCols: w.numCols, Blocks: w.metadata}
	if err := gob.NewEncoder(mf).Encode(header); err != nil {
		return errs.WrapCorruption(err, "compressedrelation: encode metadata")
	}
	return nil
}

// relationHeader is the full on-disk metadata sidecar contents.
type relationHeader struct {
	NumCols int
	Blocks  []*BlockMetadata
}
