package kvschema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestCreateBucketsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateBuckets(db))
	require.NoError(t, CreateBuckets(db))

	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		for _, b := range AllBuckets {
			require.NotNil(t, tx.Bucket([]byte(b)), "bucket %q should exist", b)
		}
		return nil
	}))
}
