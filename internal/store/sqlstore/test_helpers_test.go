package sqlstore

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jmoiron/sqlx"
)

// postgresDSNEnv names a PostgreSQL database the tests may use. Tests that
// need it are skipped when it is unset.
const postgresDSNEnv = "BLOGSTORE_TEST_POSTGRES_DSN"

// createTestStore opens a store backed by a file in t.TempDir().
func createTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(driver, path)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createPostgresStore opens the configured Postgres database and empties
// every table, or skips the test.
func createPostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	s, err := Open(DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("Open(postgres) failed: %v", err)
	}
	for _, table := range []string{"users", "posts", "chats", "counters", "analytics"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			s.Close()
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	err := db.Select(&indexes, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

func contains(list []string, item string) bool {
	return slices.Contains(list, item)
}
