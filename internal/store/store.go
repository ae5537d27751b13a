package store

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/blogstore/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates a uniqueness
	// constraint (duplicate id, duplicate username).
	ErrConflict = errors.New("conflict")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("store closed")
)

// Table is a durable entity collection.
type Table[T any] interface {
	// LoadAll returns every record ordered by id ascending.
	LoadAll(ctx context.Context) ([]T, error)

	// ReplaceAll atomically replaces the table's content with snapshot.
	ReplaceAll(ctx context.Context, snapshot []T) error

	// Insert adds exactly one record. Returns ErrConflict (wrapped) when the
	// id or another unique key already exists.
	Insert(ctx context.Context, rec T) error

	// MaxID returns the highest id in the table. ok is false when the table
	// is empty.
	MaxID(ctx context.Context) (id int64, ok bool, err error)
}

// Counters persists one sequence per name.
type Counters interface {
	// CounterValue returns the stored seq for name. ok is false when the
	// counter does not exist.
	CounterValue(ctx context.Context, name string) (seq int64, ok bool, err error)

	// CreateCounter inserts the counter if it is absent. created reports
	// whether this call inserted it.
	CreateCounter(ctx context.Context, name string, seq int64) (created bool, err error)

	// Increment atomically adds one to the counter and returns the value it
	// held before. A missing counter is created holding 2 and 1 is returned.
	Increment(ctx context.Context, name string) (int64, error)
}

// EventLog is the append-only analytics log.
type EventLog interface {
	// Append writes exactly one event. The event must already be normalized
	// (non-empty ID and Type, non-zero Timestamp, non-nil Metadata).
	Append(ctx context.Context, ev model.Event) error

	// CountBuckets counts events with from <= ts < to, restricted to
	// eventType unless it is empty, grouped by floor(ts_unix_ms / width_ms).
	CountBuckets(ctx context.Context, from, to time.Time, eventType string, width time.Duration) (map[int64]int64, error)

	// LoadEvents returns the events with from <= ts < to, ordered by
	// timestamp then id. Timestamps come back in UTC at millisecond
	// precision.
	LoadEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Backend is a complete durable store.
type Backend interface {
	Accounts() Table[model.Account]
	Posts() Table[model.Post]
	Chats() Table[model.Conversation]
	Counters
	EventLog

	// Close releases the underlying database. Safe to call more than once.
	Close() error
}

// MaxIDSource reports the highest id held by an entity collection.
type MaxIDSource interface {
	MaxID(ctx context.Context) (id int64, ok bool, err error)
}
