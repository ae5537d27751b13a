package boltstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// eventKey is the 8-byte timestamp prefix followed by the event id.
func eventKey(ev model.Event) []byte {
	return append(encodeInt(ev.Timestamp.UnixMilli()), ev.ID...)
}

// Append writes one event. Timestamps are truncated to milliseconds.
func (s *Store) Append(ctx context.Context, ev model.Event) error {
	ev.Timestamp = time.UnixMilli(ev.Timestamp.UnixMilli()).UTC()
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}

	err := s.update(func(btx *bbolt.Tx) error {
		ids := btx.Bucket(bucketEventIDs)
		if ids.Get([]byte(ev.ID)) != nil {
			return fmt.Errorf("%w: duplicate event id", store.ErrConflict)
		}
		data, err := encodeValue(ev)
		if err != nil {
			return err
		}
		key := eventKey(ev)
		if err := btx.Bucket(bucketAnalytics).Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(ev.ID), key)
	})
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

// scanEvents calls fn for every event with from <= ts < to, in key order.
func (s *Store) scanEvents(ctx context.Context, from, to time.Time, fn func(ev model.Event) error) error {
	start := encodeInt(from.UnixMilli())
	end := encodeInt(to.UnixMilli())
	return s.view(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketAnalytics).Cursor()
		for k, v := c.Seek(start); k != nil && bytes.Compare(k[:8], end) < 0; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ev model.Event
			if err := decodeValue(v, &ev); err != nil {
				return fmt.Errorf("event at %d: %w", decodeInt(k[:8]), err)
			}
			ev.Timestamp = utc(ev.Timestamp)
			if ev.Metadata == nil {
				ev.Metadata = map[string]any{}
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountBuckets counts events in [from, to) grouped by unix-ms / width.
func (s *Store) CountBuckets(ctx context.Context, from, to time.Time, eventType string, width time.Duration) (map[int64]int64, error) {
	widthMs := width.Milliseconds()
	if widthMs <= 0 {
		return nil, fmt.Errorf("count buckets: width %s below one millisecond", width)
	}

	counts := map[int64]int64{}
	err := s.scanEvents(ctx, from, to, func(ev model.Event) error {
		if eventType == "" || ev.Type == eventType {
			counts[ev.Timestamp.UnixMilli()/widthMs]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count buckets: %w", err)
	}
	return counts, nil
}

// LoadEvents returns every event in [from, to) ordered by timestamp.
func (s *Store) LoadEvents(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	events := []model.Event{}
	err := s.scanEvents(ctx, from, to, func(ev model.Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return events, nil
}
