// Package cache holds the in-memory mirrors of the entity collections.
package cache

import (
	"slices"
	"sync"
)

// Entity is a record the mirror can order and copy.
type Entity[T any] interface {
	Key() int64
	Clone() T
}

// Mirror is an ordered in-memory copy of one collection, sorted by id
// ascending.
//
// Readers get deep copies, so callers may mutate what they receive. Safe for
// concurrent use; compound read-modify-write sequences still need external
// serialization.
type Mirror[T Entity[T]] struct {
	mu    sync.RWMutex
	items []T
}

// New creates an empty mirror.
func New[T Entity[T]]() *Mirror[T] {
	return &Mirror[T]{items: []T{}}
}

// Replace swaps in a copy of items, sorted by id.
func (m *Mirror[T]) Replace(items []T) {
	next := cloneAll(items)
	slices.SortStableFunc(next, func(a, b T) int {
		return compareKeys(a.Key(), b.Key())
	})

	m.mu.Lock()
	m.items = next
	m.mu.Unlock()
}

// Append inserts a copy of item at its id position. Items appended in id
// order stay at the tail.
func (m *Mirror[T]) Append(item T) {
	c := item.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.items)
	for i > 0 && m.items[i-1].Key() > c.Key() {
		i--
	}
	m.items = slices.Insert(m.items, i, c)
}

// Snapshot returns a deep copy of every item in id order.
// Returns empty slice (not nil) if the mirror is empty.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.items)
}

// Find returns a copy of the item with the given id.
func (m *Mirror[T]) Find(id int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := slices.BinarySearchFunc(m.items, id, func(item T, id int64) int {
		return compareKeys(item.Key(), id)
	})
	if !ok {
		var zero T
		return zero, false
	}
	return m.items[i].Clone(), true
}

// MaxID returns the highest id held. ok is false when the mirror is empty.
func (m *Mirror[T]) MaxID() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.items) == 0 {
		return 0, false
	}
	return m.items[len(m.items)-1].Key(), true
}

// Len returns the number of items.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func cloneAll[T Entity[T]](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func compareKeys(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
