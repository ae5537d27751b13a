// Package sqlstore provides the SQL implementation of store.Backend.
//
// Three database/sql drivers are supported, chosen by name at Open:
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo, the default)
//   - "sqlite": modernc.org/sqlite (pure Go)
//   - "postgres": github.com/lib/pq
//
// Queries are written once with ? placeholders and rebound per driver by
// sqlx. The schema (schema.sql) is portable between SQLite and PostgreSQL.
//
// # Storage Layout
//
//   - users, posts, chats: one row per entity, keyed by id. List-valued
//     fields (likedBy, comments, users, messages) are JSON TEXT columns.
//   - counters: one row per entity kind. Increment is a single
//     INSERT ... ON CONFLICT DO UPDATE ... RETURNING statement.
//   - analytics: one row per event. ts is unix milliseconds (UTC) so that
//     bucketing is integer division in either dialect.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection (SQLite allows one writer)
//
// ReplaceAll runs its delete and bulk insert inside one transaction, so the
// empty intermediate state is never visible outside it.
package sqlstore
