// Copyright 2025 The QLever Authors.
//
// Package compressedrelation implements the compressed, on-disk
// permutation store from spec.md section 4.2: a write-once/read-many
// file holding one sort order of the triple relation, split into blocks
// that are compressed column-by-column and indexed by an in-memory
// metadata table for binary-search lookups.
package compressedrelation

import (
	"encoding/binary"

	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/klauspost/compress/zstd"
)

// bytesPerID is the on-disk width of a single valueid.Id before
// compression.
const bytesPerID = 8

// ColumnRange is the observed [Min, Max] of one column within a block,
// recorded in the block's metadata. Neither SizeEstimate nor Scan reads
// it: SizeEstimate works from FirstRow/LastRow and NumRows, and Scan
// decompresses every candidate block before filtering its rows.
type ColumnRange struct {
	Min, Max valueid.Id
}

// BlockMetadata describes one compressed block: its row-key span, the
// per-column value ranges, and where its compressed column segments live
// in the data file.
type BlockMetadata struct {
	FirstRow      rows.Row
	LastRow       rows.Row
	ColumnRanges  []ColumnRange
	NumRows       int
	ColumnOffsets []int64
	ColumnSizes   []int64
}

// encodeColumn serializes a column of Ids to little-endian bytes, then
// zstd-compresses it. Columns are compressed independently so that a scan
// touching only a prefix of columns can, in principle, skip decompressing
// the rest (spec.md section 4.2: "compress each column independently").
func encodeColumn(col []valueid.Id) ([]byte, error) {
	raw := make([]byte, len(col)*bytesPerID)
	for i, id := range col {
		binary.LittleEndian.PutUint64(raw[i*bytesPerID:], uint64(id))
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decodeColumn(compressed []byte, numRows int) ([]valueid.Id, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, make([]byte, 0, numRows*bytesPerID))
	if err != nil {
		return nil, err
	}
	col := make([]valueid.Id, numRows)
	for i := range col {
		col[i] = valueid.Id(binary.LittleEndian.Uint64(raw[i*bytesPerID:]))
	}
	return col, nil
}

// columnRanges scans numCols columns of buf and returns the observed
// [min,max] of each, used for the block's metadata entry.
func columnRanges(buf []rows.Row, numCols int) []ColumnRange {
	out := make([]ColumnRange, numCols)
	for c := 0; c < numCols; c++ {
		out[c] = ColumnRange{Min: buf[0][c], Max: buf[0][c]}
	}
	for _, r := range buf[1:] {
		for c := 0; c < numCols; c++ {
			if valueid.CompareWithoutLocalVocab(r[c], out[c].Min) < 0 {
				out[c].Min = r[c]
			}
			if valueid.CompareWithoutLocalVocab(r[c], out[c].Max) > 0 {
				out[c].Max = r[c]
			}
		}
	}
	return out
}
