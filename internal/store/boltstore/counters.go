package boltstore

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

// CounterValue returns the stored seq for name.
func (s *Store) CounterValue(ctx context.Context, name string) (int64, bool, error) {
	var (
		seq int64
		ok  bool
	)
	err := s.view(func(btx *bbolt.Tx) error {
		if v := btx.Bucket(bucketCounters).Get([]byte(name)); v != nil {
			seq, ok = decodeInt(v), true
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("get counter %q: %w", name, err)
	}
	return seq, ok, nil
}

// CreateCounter stores seq under name unless the counter already exists.
func (s *Store) CreateCounter(ctx context.Context, name string, seq int64) (bool, error) {
	var created bool
	err := s.update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketCounters)
		if b.Get([]byte(name)) != nil {
			return nil
		}
		created = true
		return b.Put([]byte(name), encodeInt(seq))
	})
	if err != nil {
		return false, fmt.Errorf("create counter %q: %w", name, err)
	}
	return created, nil
}

// Increment reads and bumps the counter inside one Update. A missing
// counter behaves as if it held 1.
func (s *Store) Increment(ctx context.Context, name string) (int64, error) {
	var prev int64
	err := s.update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketCounters)
		prev = 1
		if v := b.Get([]byte(name)); v != nil {
			prev = decodeInt(v)
		}
		return b.Put([]byte(name), encodeInt(prev+1))
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", name, err)
	}
	return prev, nil
}
