// Copyright 2025 The QLever Authors.
//
// Package memsize implements a base-10 memory-size value type, grounded on
// original_source/src/util/MemorySize/MemorySize.h. Unlike most "KB means
// 1024 bytes" conventions, the SPARQL engine's config surface (memory
// budgets, cache sizes) is specified in decimal units: a kilobyte is 1000
// bytes, a megabyte 1'000'000, and so on.
package memsize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ad-freiburg/qlever-sub013/internal/mathx"
	"github.com/c2h5oh/datasize"
)

// Size is an immutable amount of memory, stored as a byte count.
type Size struct {
	bytes uint64
}

const (
	unitKB = 1_000
	unitMB = 1_000 * unitKB
	unitGB = 1_000 * unitMB
	unitTB = 1_000 * unitGB
)

func Bytes(n uint64) Size     { return Size{n} }
func Kilobytes(n float64) Size { return Size{uint64(ceil(n * unitKB))} }
func Megabytes(n float64) Size { return Size{uint64(ceil(n * unitMB))} }
func Gigabytes(n float64) Size { return Size{uint64(ceil(n * unitGB))} }
func Terabytes(n float64) Size { return Size{uint64(ceil(n * unitTB))} }

// Max returns the largest representable Size, used as the limit for an
// "unlimited" allocator.
func Max() Size { return Size{^uint64(0)} }

func ceil(f float64) float64 {
	i := float64(int64(f))
	if f > i {
		return i + 1
	}
	return i
}

func (s Size) Bytes() uint64      { return s.bytes }
func (s Size) Kilobytes() float64 { return divide(s.bytes, unitKB) }
func (s Size) Megabytes() float64 { return divide(s.bytes, unitMB) }
func (s Size) Gigabytes() float64 { return divide(s.bytes, unitGB) }
func (s Size) Terabytes() float64 { return divide(s.bytes, unitTB) }

func divide(dividend, divisor uint64) float64 {
	q := dividend / divisor
	return float64(q) + float64(dividend%divisor)/float64(divisor)
}

// Add returns s+o, saturating at the largest representable Size instead
// of wrapping around if the sum overflows a uint64 byte count.
func (s Size) Add(o Size) Size { return Size{mathx.SaturatingAdd(s.bytes, o.bytes)} }

// Sub returns zero (not underflow) when o exceeds s, matching the
// allocator's use of Size as an always-non-negative remaining budget.
func (s Size) Sub(o Size) Size {
	if o.bytes > s.bytes {
		return Size{0}
	}
	return Size{s.bytes - o.bytes}
}

func (s Size) LessEq(o Size) bool { return s.bytes <= o.bytes }
func (s Size) Less(o Size) bool   { return s.bytes < o.bytes }

// String renders the size in the largest unit that is <= the value, with
// the exception that values in [10^5, 10^6) bytes are already shown in MB
// (e.g. "0.50 MB"), so "kB" is only used in [10^3, 10^5).
func (s Size) String() string {
	b := s.bytes
	switch {
	case b >= unitTB:
		return fmt.Sprintf("%.2f TB", s.Terabytes())
	case b >= unitGB:
		return fmt.Sprintf("%.2f GB", s.Gigabytes())
	case b >= 100_000:
		return fmt.Sprintf("%.2f MB", s.Megabytes())
	case b >= unitKB:
		return fmt.Sprintf("%.2f kB", s.Kilobytes())
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Parse accepts either the engine's own decimal-unit syntax ("16 GB",
// "500MB", "4096") or a plain byte count, falling back to
// github.com/c2h5oh/datasize's (binary-unit) parser for anything written
// with IEC suffixes such as "16GiB" so operators can paste either style
// into a config file without the parse failing.
func Parse(s string) (Size, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Size{}, fmt.Errorf("memsize: empty size string")
	}
	if n, ok := mathx.ParseUint64(trimmed); ok {
		return Size{n}, nil
	}
	lower := strings.ToLower(strings.ReplaceAll(trimmed, " ", ""))
	suffixUnits := []struct {
		suffix string
		unit   uint64
	}{
		{"tb", unitTB}, {"gb", unitGB}, {"mb", unitMB}, {"kb", unitKB}, {"b", 1},
	}
	for _, su := range suffixUnits {
		if strings.HasSuffix(lower, su.suffix) {
			numPart := strings.TrimSuffix(lower, su.suffix)
			f, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				continue
			}
			return Size{uint64(ceil(f * float64(su.unit)))}, nil
		}
	}
	var bs datasize.ByteSize
	if err := bs.UnmarshalText([]byte(trimmed)); err != nil {
		return Size{}, fmt.Errorf("memsize: cannot parse %q: %w", s, err)
	}
	return Size{bs.Bytes()}, nil
}
