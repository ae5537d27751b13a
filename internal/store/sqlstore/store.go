package sqlstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	mattn "github.com/mattn/go-sqlite3"
	modernc "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Supported driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Schema version tracking (SQLite only, via PRAGMA user_version):
// 0 - Tables only
// 1 - Lookup indexes (posts.author, analytics.ts, analytics.type)
const currentSchemaVersion = 1

func init() {
	// sqlx knows mattn's driver name but not modernc's.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is the SQL-backed store.Backend.
type Store struct {
	db     *sqlx.DB
	driver string
	closed atomic.Bool

	accounts *table[model.Account, accountRow]
	posts    *table[model.Post, postRow]
	chats    *table[model.Conversation, chatRow]
}

var _ store.Backend = (*Store)(nil)

// Open connects to the database named by dsn using driver, applies the
// SQLite pragmas when relevant, and creates or migrates the schema.
//
// This function is idempotent - safe to call multiple times on the same
// database.
func Open(driver, dsn string) (*Store, error) {
	if !IsSupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isSQLite(driver) {
		// SQLite only supports one writer at a time, so limit connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, driver: driver}
	s.accounts = newTable(s, accountSpec)
	s.posts = newTable(s, postSpec)
	s.chats = newTable(s, chatSpec)
	return s, nil
}

// IsSupportedDriver reports whether Open accepts the driver name.
func IsSupportedDriver(driver string) bool {
	switch driver {
	case DriverSQLite3, DriverSQLite, DriverPostgres:
		return true
	}
	return false
}

func isSQLite(driver string) bool {
	return driver == DriverSQLite3 || driver == DriverSQLite
}

// Close closes the database connection.
// Safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sqlx.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Accounts() store.Table[model.Account] { return s.accounts }

func (s *Store) Posts() store.Table[model.Post] { return s.posts }

func (s *Store) Chats() store.Table[model.Conversation] { return s.chats }

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sqlx.DB, driver string) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations. SQLite tracks the
// applied version in user_version; PostgreSQL re-runs the idempotent steps.
func runMigrations(db *sqlx.DB, driver string) error {
	if !isSQLite(driver) {
		return migrateToV1(db)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the lookup indexes: posts by author, analytics by
// timestamp and by type.
func migrateToV1(db *sqlx.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_ts ON analytics(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics(type)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure from any supported driver.
func isUniqueViolation(err error) bool {
	var me mattn.Error
	if errors.As(err, &me) {
		return me.ExtendedCode == mattn.ErrConstraintUnique ||
			me.ExtendedCode == mattn.ErrConstraintPrimaryKey
	}

	var ce *modernc.Error
	if errors.As(err, &ce) {
		return ce.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			ce.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}

	return false
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
