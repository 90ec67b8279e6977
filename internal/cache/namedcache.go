// Copyright 2025 The QLever Authors.
package cache

import (
	"bytes"
	"encoding/gob"
	"regexp"
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/kvschema"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	bolt "go.etcd.io/bbolt"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

var namedResultBucket = []byte(kvschema.NamedResults)

// NamedResultCache backs queryAndPinResultWithName (spec.md section 6): a
// pinned (never LRU-evicted) name->Entry map, optionally durable across
// restarts via a bbolt file.
type NamedResultCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	db      *bolt.DB
}

// NewNamedResultCache returns an in-memory-only NamedResultCache.
func NewNamedResultCache() *NamedResultCache {
	return &NamedResultCache{entries: make(map[string]*Entry)}
}

// OpenPersistent returns a NamedResultCache backed by a bbolt database at
// path, loading any previously pinned results.
func OpenPersistent(path string) (*NamedResultCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.WrapCorruption(err, "cache: open named-result database")
	}
	if err := kvschema.CreateBuckets(db); err != nil {
		db.Close()
		return nil, errs.WrapCorruption(err, "cache: create named-result bucket")
	}
	n := &NamedResultCache{entries: make(map[string]*Entry), db: db}
	if err := n.loadPersisted(); err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

func (n *NamedResultCache) Close() error {
	if n.db == nil {
		return nil
	}
	return n.db.Close()
}

// Pin stores entry under name, validating the name pattern (spec.md
// section 4.5: "[A-Za-z0-9-]+"), and persists it if backed by bbolt.
func (n *NamedResultCache) Pin(name string, e *Entry) error {
	if !validName.MatchString(name) {
		return errs.Config("cache: invalid named-result name %q", name)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if old, ok := n.entries[name]; ok {
		old.Release()
	}
	e.AddRef()
	n.entries[name] = e
	if n.db != nil {
		if err := n.persist(name, e); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the pinned entry for name, adding a reference on the
// caller's behalf.
func (n *NamedResultCache) Get(name string) (*Entry, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.entries[name]
	if !ok {
		return nil, false
	}
	e.AddRef()
	return e, true
}

// persistedResult is the on-disk encoding of one pinned result: a
// column-major table is flattened back to rows, since gob cannot encode
// the rows.Table interface directly.
type persistedResult struct {
	NumCols int
	Rows    [][]uint64
}

func (n *NamedResultCache) persist(name string, e *Entry) error {
	pr := persistedResult{NumCols: e.Table.NumCols(), Rows: make([][]uint64, e.Table.NumRows())}
	for r := 0; r < e.Table.NumRows(); r++ {
		row := make([]uint64, pr.NumCols)
		for c := 0; c < pr.NumCols; c++ {
			row[c] = uint64(e.Table.At(r, c))
		}
		pr.Rows[r] = row
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pr); err != nil {
		return errs.WrapCorruption(err, "cache: encode named result %q", name)
	}
	return n.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(namedResultBucket).Put([]byte(name), buf.Bytes())
	})
}

// Snapshot gob-encodes every pinned result into a single self-contained
// byte slice, independent of any bbolt backing — the form embedded in
// the named-result-cache section of the serialized blob format (spec.md
// section 6).
func (n *NamedResultCache) Snapshot() ([]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	snap := make(map[string]persistedResult, len(n.entries))
	for name, e := range n.entries {
		pr := persistedResult{NumCols: e.Table.NumCols(), Rows: make([][]uint64, e.Table.NumRows())}
		for r := 0; r < e.Table.NumRows(); r++ {
			row := make([]uint64, pr.NumCols)
			for c := 0; c < pr.NumCols; c++ {
				row[c] = uint64(e.Table.At(r, c))
			}
			pr.Rows[r] = row
		}
		snap[name] = pr
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errs.WrapCorruption(err, "cache: encode named-result snapshot")
	}
	return buf.Bytes(), nil
}

// ImportSnapshot builds an in-memory-only NamedResultCache from bytes
// produced by Snapshot, used when deserializing a blob.
func ImportSnapshot(data []byte) (*NamedResultCache, error) {
	var snap map[string]persistedResult
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, errs.WrapCorruption(err, "cache: decode named-result snapshot")
	}
	n := NewNamedResultCache()
	for name, pr := range snap {
		tbl := rows.NewTable(pr.NumCols)
		for _, r := range pr.Rows {
			row := make(rows.Row, pr.NumCols)
			for c, id := range r {
				row[c] = valueid.Id(id)
			}
			tbl.AppendRow(row)
		}
		n.entries[name] = NewEntry(tbl, nil, 0)
	}
	return n, nil
}

func (n *NamedResultCache) loadPersisted() error {
	return n.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(namedResultBucket)
		return b.ForEach(func(k, v []byte) error {
			var pr persistedResult
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&pr); err != nil {
				return errs.WrapCorruption(err, "cache: decode named result %q", string(k))
			}
			tbl := rows.NewTable(pr.NumCols)
			for _, r := range pr.Rows {
				row := make(rows.Row, pr.NumCols)
				for c, id := range r {
					row[c] = valueid.Id(id)
				}
				tbl.AppendRow(row)
			}
			n.entries[string(k)] = NewEntry(tbl, nil, 0)
			return nil
		})
	})
}
