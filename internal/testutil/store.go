package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/blogstore/internal/store/boltstore"
	"github.com/roach88/blogstore/internal/store/sqlstore"
)

// OpenSQLite opens a mattn/go-sqlite3 store in t.TempDir(), closed on
// cleanup.
func OpenSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(sqlstore.DriverSQLite3, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlstore.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// OpenBolt opens a bbolt store in t.TempDir(), closed on cleanup.
func OpenBolt(t *testing.T) *boltstore.Store {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "test.bolt"), boltstore.Options{NoSync: true})
	if err != nil {
		t.Fatalf("boltstore.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
