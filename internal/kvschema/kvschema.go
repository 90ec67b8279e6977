// Copyright 2025 The QLever Authors.
//
// Package kvschema centralizes the bbolt bucket names and versioned schema
// this module's on-disk key-value state uses, grounded on
// erigon-lib/kv/tables.go's pattern: rather than let bucket names live as
// ad hoc string literals scattered next to each call site, every bucket
// is declared once here, with a doc comment describing its key/value
// layout, and collected into a single registry a store can initialize
// from in one pass. Reduced from that file's hundred-plus MDBX chain
// tables (with per-table DupSort/flags configuration) to the handful of
// plain key/value buckets this engine's bbolt-backed stores actually
// need — there is no MDBX-specific flag configuration to carry over
// since bbolt exposes no equivalent of DupSort/IntegerKey.
package kvschema

import bolt "go.etcd.io/bbolt"

// SchemaVersion identifies the layout of every bucket this package names.
// Bump it, and document the change here, whenever a bucket's key or value
// encoding changes incompatibly.
var SchemaVersion = struct{ Major, Minor, Patch int }{Major: 1, Minor: 0, Patch: 0}

// Bucket is a bbolt top-level bucket name.
type Bucket string

const (
	// NamedResults holds one gob-encoded persistedResult per pinned name:
	// key is the pin name, value is cache.persistedResult's gob encoding
	// (spec.md section 4.5's queryAndPinResultWithName).
	NamedResults Bucket = "named-results"
)

// AllBuckets lists every bucket a complete bbolt-backed store must have
// created before use; CreateBuckets walks exactly this list, so adding a
// new persistent structure to the engine means adding one constant above
// and one entry here rather than hunting down every db.Update call site.
var AllBuckets = []Bucket{NamedResults}

// CreateBuckets ensures every bucket in AllBuckets exists in db, creating
// whichever are missing in a single transaction.
func CreateBuckets(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, b := range AllBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
}
