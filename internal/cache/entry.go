// Copyright 2025 The QLever Authors.
//
// Package cache implements the result cache and named-result cache from
// spec.md section 5 ("thread-safe associative stores... return
// shared-ownership handles to result tables") and section 4.4's cache-key
// contract.
package cache

import (
	"sync/atomic"

	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
)

// Entry is a shared, ref-counted cache entry: a result table plus the
// LocalVocab it was computed against (spec.md section 3: local-vocab
// strings are per-query, so a cached result must carry its own vocab
// alongside the table, not assume the querying context's).
type Entry struct {
	Table      rows.Table
	LocalVocab *vocabulary.LocalVocab
	SizeBytes  memsize.Size
	refs       int32
}

// NewEntry wraps table/vocab as a cache entry with one initial reference
// and adds a reference to vocab on its behalf.
func NewEntry(table rows.Table, vocab *vocabulary.LocalVocab, size memsize.Size) *Entry {
	if vocab != nil {
		vocab.AddRef()
	}
	return &Entry{Table: table, LocalVocab: vocab, SizeBytes: size, refs: 1}
}

// AddRef increments the entry's reference count; callers handed an Entry
// from Get must call this (Get does it for them) and Release when done.
func (e *Entry) AddRef() { atomic.AddInt32(&e.refs, 1) }

// Release decrements the reference count, releasing the entry's LocalVocab
// reference once it reaches zero. Returns true if this call brought the
// count to zero.
func (e *Entry) Release() bool {
	if atomic.AddInt32(&e.refs, -1) == 0 {
		if e.LocalVocab != nil {
			e.LocalVocab.Release()
		}
		return true
	}
	return false
}
