// Package store defines the durable-store ports shared by every backend.
//
// A Backend owns five logical collections:
//   - users, posts, chats: entity tables keyed by int64 id
//   - counters: one sequence row per entity kind
//   - analytics: an append-only event log
//
// # Contracts
//
// Table.LoadAll returns records ordered by id ascending and never returns a
// nil slice on success.
//
// Table.ReplaceAll leaves the table equal to the snapshot. Implementations
// run the delete and the insert in one transaction, so no reader observes
// the table empty in between.
//
// Counters.Increment is a single atomic read-modify-write. It returns the
// value held before the increment and creates a missing counter as if it had
// held 1. It is the only operation in this package that is safe under
// concurrent writers from several processes.
//
// EventLog.CountBuckets groups by floor(ts_unix_ms / width_ms). Insertion
// order never matters.
//
// Implementations live in sqlstore (SQLite, Postgres) and boltstore (bbolt).
// The storetest package holds the conformance suite both run.
package store
