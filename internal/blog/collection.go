package blog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/blogstore/internal/cache"
	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/sequence"
	"github.com/roach88/blogstore/internal/store"
)

// entity is the shape every stored record has.
type entity[T any] interface {
	cache.Entity[T]
	WithKey(id int64) T
	Normalize() T
}

// Collection is one durable table plus its cache and id counter.
type Collection[T entity[T]] struct {
	kind   model.Kind
	table  store.Table[T]
	cache  *cache.Mirror[T]
	alloc  *sequence.Allocator
	logger *slog.Logger
}

func newCollection[T entity[T]](kind model.Kind, table store.Table[T], alloc *sequence.Allocator, logger *slog.Logger) *Collection[T] {
	c := &Collection[T]{
		kind:   kind,
		table:  table,
		cache:  cache.New[T](),
		alloc:  alloc,
		logger: logger.With("collection", kind.String()),
	}
	alloc.Register(kind.String(), table, c.cache)
	return c
}

// Kind returns the collection name.
func (c *Collection[T]) Kind() model.Kind { return c.kind }

// LoadAll reads every durable record in id order, with missing optional
// fields defaulted. A read failure is logged and yields an empty slice.
func (c *Collection[T]) LoadAll(ctx context.Context) []T {
	records, err := c.table.LoadAll(ctx)
	if err != nil {
		c.logger.Error("load failed, continuing with empty collection", "error", err)
		return []T{}
	}
	for i := range records {
		records[i] = records[i].Normalize()
	}
	return records
}

// Reload replaces the cache with LoadAll and returns the record count.
func (c *Collection[T]) Reload(ctx context.Context) int {
	records := c.LoadAll(ctx)
	c.cache.Replace(records)
	c.logger.Debug("cache loaded", "count", len(records))
	return len(records)
}

// Save replaces the durable collection with snapshot and, on success,
// publishes snapshot to the cache. On failure the cache is unchanged.
func (c *Collection[T]) Save(ctx context.Context, snapshot []T) error {
	normalized := make([]T, len(snapshot))
	for i, rec := range snapshot {
		normalized[i] = rec.Normalize()
	}

	if err := c.table.ReplaceAll(ctx, normalized); err != nil {
		return fmt.Errorf("save %s: %w", c.kind, err)
	}
	c.cache.Replace(normalized)
	c.logger.Debug("collection saved", "count", len(normalized))
	return nil
}

// Add inserts one record, allocating its id first when it is zero, and
// appends it to the cache. Returns the record as stored.
func (c *Collection[T]) Add(ctx context.Context, rec T) (T, error) {
	if rec.Key() == 0 {
		id, err := c.Next(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		rec = rec.WithKey(id)
	}
	rec = rec.Normalize()

	if err := c.table.Insert(ctx, rec); err != nil {
		var zero T
		return zero, fmt.Errorf("add %s %d: %w", c.kind, rec.Key(), err)
	}
	c.cache.Append(rec)
	c.logger.Debug("record added", "id", rec.Key())
	return rec.Clone(), nil
}

// Next allocates the collection's next id.
func (c *Collection[T]) Next(ctx context.Context) (int64, error) {
	id, err := c.alloc.Next(ctx, c.kind.String())
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", c.kind, err)
	}
	return id, nil
}

// Snapshot returns a copy of the cached records in id order.
func (c *Collection[T]) Snapshot() []T { return c.cache.Snapshot() }

// Find returns a copy of the cached record with the given id.
func (c *Collection[T]) Find(id int64) (T, bool) { return c.cache.Find(id) }

// Len returns the number of cached records.
func (c *Collection[T]) Len() int { return c.cache.Len() }
