package boltstore

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// tableSpec describes one entity bucket.
type tableSpec[T any] struct {
	bucket []byte
	key    func(T) int64

	// uniq returns a secondary key that must be unique across the bucket,
	// or nil when the kind has none.
	uniq func(T) string

	// fix restores invariants lost in encoding (time zones, nil slices).
	fix func(T) T
}

type table[T any] struct {
	s    *Store
	spec tableSpec[T]
}

func newTable[T any](s *Store, spec tableSpec[T]) *table[T] {
	return &table[T]{s: s, spec: spec}
}

// LoadAll returns every record in key order.
// Returns empty slice (not nil) if the bucket is empty.
func (t *table[T]) LoadAll(ctx context.Context) ([]T, error) {
	out := []T{}
	err := t.s.view(func(btx *bbolt.Tx) error {
		return btx.Bucket(t.spec.bucket).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := t.decode(v)
			if err != nil {
				return fmt.Errorf("record %d: %w", decodeInt(k), err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.spec.bucket, err)
	}
	return out, nil
}

// ReplaceAll drops and recreates the bucket inside one Update, so readers
// see either the old content or the snapshot.
func (t *table[T]) ReplaceAll(ctx context.Context, snapshot []T) error {
	err := t.s.update(func(btx *bbolt.Tx) error {
		if err := btx.DeleteBucket(t.spec.bucket); err != nil {
			return err
		}
		b, err := btx.CreateBucket(t.spec.bucket)
		if err != nil {
			return err
		}

		seen := map[string]bool{}
		for _, rec := range snapshot {
			if err := ctx.Err(); err != nil {
				return err
			}
			if t.spec.uniq != nil {
				u := t.spec.uniq(rec)
				if seen[u] {
					return fmt.Errorf("%w: duplicate unique key %q", store.ErrConflict, u)
				}
				seen[u] = true
			}
			if err := t.put(b, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", t.spec.bucket, err)
	}
	return nil
}

// Insert adds one record.
func (t *table[T]) Insert(ctx context.Context, rec T) error {
	err := t.s.update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(t.spec.bucket)
		if t.spec.uniq != nil {
			u := t.spec.uniq(rec)
			err := b.ForEach(func(_, v []byte) error {
				other, err := t.decode(v)
				if err != nil {
					return err
				}
				if t.spec.uniq(other) == u {
					return fmt.Errorf("%w: duplicate unique key %q", store.ErrConflict, u)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return t.put(b, rec)
	})
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.spec.bucket, err)
	}
	return nil
}

// MaxID returns the id under the last key.
func (t *table[T]) MaxID(ctx context.Context) (int64, bool, error) {
	var (
		id int64
		ok bool
	)
	err := t.s.view(func(btx *bbolt.Tx) error {
		k, _ := btx.Bucket(t.spec.bucket).Cursor().Last()
		if k != nil {
			id, ok = decodeInt(k), true
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("max id %s: %w", t.spec.bucket, err)
	}
	return id, ok, nil
}

// put writes rec unless its id is already present.
func (t *table[T]) put(b *bbolt.Bucket, rec T) error {
	key := encodeInt(t.spec.key(rec))
	if b.Get(key) != nil {
		return fmt.Errorf("%w: duplicate id %d", store.ErrConflict, t.spec.key(rec))
	}
	data, err := encodeValue(rec)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func (t *table[T]) decode(data []byte) (T, error) {
	var rec T
	if err := decodeValue(data, &rec); err != nil {
		return rec, err
	}
	return t.spec.fix(rec), nil
}

var accountSpec = tableSpec[model.Account]{
	bucket: []byte("users"),
	key:    model.Account.Key,
	uniq:   func(a model.Account) string { return a.Username },
	fix:    model.Account.Normalize,
}

var postSpec = tableSpec[model.Post]{
	bucket: []byte("posts"),
	key:    model.Post.Key,
	fix: func(p model.Post) model.Post {
		p.Date = utc(p.Date)
		for i := range p.Comments {
			p.Comments[i].Date = utc(p.Comments[i].Date)
		}
		return p.Normalize()
	},
}

var chatSpec = tableSpec[model.Conversation]{
	bucket: []byte("chats"),
	key:    model.Conversation.Key,
	fix: func(c model.Conversation) model.Conversation {
		for i := range c.Messages {
			c.Messages[i].Date = utc(c.Messages[i].Date)
		}
		return c.Normalize()
	},
}
