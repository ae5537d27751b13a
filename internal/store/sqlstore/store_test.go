package sqlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(DriverSQLite3, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(DriverSQLite3, path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(DriverSQLite3, path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"users", "posts", "chats", "counters", "analytics"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_KeepsDataAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Accounts().Insert(ctx, model.Account{ID: 1, Username: "alice"}); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if _, err := s1.Increment(ctx, "users"); err != nil {
		t.Fatalf("Increment() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	accounts, err := s2.Accounts().LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Username != "alice" {
		t.Errorf("LoadAll() = %+v, want alice", accounts)
	}
	seq, _, err := s2.CounterValue(ctx, "users")
	if err != nil {
		t.Fatalf("CounterValue() failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(DriverSQLite3, "/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	if err == nil {
		t.Fatal("expected error for unsupported driver, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(DriverSQLite3, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	if _, _, err := s.Posts().MaxID(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("MaxID() after Close() = %v, want ErrClosed", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
	if s.Driver() != DriverSQLite3 {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverSQLite3)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	for _, driver := range []string{DriverSQLite3, DriverSQLite} {
		s := createTestStore(t, driver)
		if err := s.verifyPragma("journal_mode", "wal"); err != nil {
			t.Errorf("%s: %v", driver, err)
		}
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_UserVersion(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

// Schema tests

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	tests := map[string][]string{
		"users":     {"id", "username", "password"},
		"posts":     {"id", "title", "content", "author", "date", "likes", "liked_by", "comments"},
		"chats":     {"id", "users", "messages"},
		"counters":  {"name", "seq"},
		"analytics": {"id", "type", "ts", "meta"},
	}
	for table, expected := range tests {
		columns := getTableColumns(t, s.db, table)
		for _, col := range expected {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	tests := map[string][]string{
		"posts":     {"idx_posts_author"},
		"analytics": {"idx_analytics_ts", "idx_analytics_type"},
	}
	for table, expected := range tests {
		indexes := getTableIndexes(t, s.db, table)
		for _, idx := range expected {
			if !contains(indexes, idx) {
				t.Errorf("%s table missing index %q", table, idx)
			}
		}
	}
}

func TestMigration_FromVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(DriverSQLite3, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// Simulate a database created before the indexes existed.
	for _, stmt := range []string{
		"DROP INDEX idx_posts_author",
		"DROP INDEX idx_analytics_ts",
		"DROP INDEX idx_analytics_type",
		"PRAGMA user_version = 0",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	s.Close()

	s, err = Open(DriverSQLite3, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if !contains(getTableIndexes(t, s.db, "posts"), "idx_posts_author") {
		t.Error("migration did not recreate idx_posts_author")
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

// Storage format tests

func TestPost_AnonymousAuthorStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, DriverSQLite3)

	if err := s.Posts().Insert(ctx, model.Post{ID: 1, Title: "anon"}); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM posts WHERE author IS NULL"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if n != 1 {
		t.Errorf("NULL author rows = %d, want 1", n)
	}
}

func TestPost_MissingListColumnsDefaultEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, DriverSQLite3)

	// Rows written by hand may omit or null the JSON columns.
	if _, err := s.db.Exec(`INSERT INTO posts (id, title, liked_by, comments, likes) VALUES (1, 'raw', 'null', '', -3)`); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	posts, err := s.Posts().LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("LoadAll() returned %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.LikedBy == nil || len(p.LikedBy) != 0 {
		t.Errorf("LikedBy = %#v, want empty slice", p.LikedBy)
	}
	if p.Comments == nil || len(p.Comments) != 0 {
		t.Errorf("Comments = %#v, want empty slice", p.Comments)
	}
	if p.Likes != 0 {
		t.Errorf("Likes = %d, want 0", p.Likes)
	}
}

func TestLoadAll_CorruptRowFails(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, DriverSQLite3)

	if _, err := s.db.Exec(`INSERT INTO chats (id, users, messages) VALUES (1, '{broken', '[]')`); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	if _, err := s.Chats().LoadAll(ctx); err == nil {
		t.Error("LoadAll() on corrupt row should fail")
	}
}

func TestAppend_NilMetadataStoredAsEmptyObject(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, DriverSQLite3)

	ev := model.Event{ID: "e1", Type: "visit", Timestamp: day0}
	if err := s.Append(ctx, ev); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var meta string
	if err := s.db.Get(&meta, "SELECT meta FROM analytics WHERE id = 'e1'"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if meta != "{}" {
		t.Errorf("meta = %q, want {}", meta)
	}
}

func TestCountBuckets_RejectsSubMillisecondWidth(t *testing.T) {
	s := createTestStore(t, DriverSQLite3)

	_, err := s.CountBuckets(context.Background(), day0, day0.Add(1), "", 1)
	if err == nil {
		t.Error("CountBuckets() with 1ns width should fail")
	}
}
