package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// Append writes one analytics row. Timestamps are stored as unix
// milliseconds so bucketing is integer division in SQL.
func (s *Store) Append(ctx context.Context, ev model.Event) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	meta, err := marshalColumn(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if meta == "null" {
		meta = "{}"
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO analytics (id, type, ts, meta) VALUES (?, ?, ?, ?)
	`), ev.ID, ev.Type, ev.Timestamp.UnixMilli(), meta)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append event %s: %w: %v", ev.ID, store.ErrConflict, err)
		}
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

type bucketRow struct {
	Bucket int64 `db:"bucket"`
	N      int64 `db:"n"`
}

// CountBuckets counts events in [from, to) grouped by ts / width.
// Returns an empty map (not nil) if nothing matches.
func (s *Store) CountBuckets(ctx context.Context, from, to time.Time, eventType string, width time.Duration) (map[int64]int64, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	widthMs := width.Milliseconds()
	if widthMs <= 0 {
		return nil, fmt.Errorf("count buckets: width %s below one millisecond", width)
	}

	query := `SELECT ts / ? AS bucket, COUNT(*) AS n FROM analytics WHERE ts >= ? AND ts < ?`
	args := []any{widthMs, from.UnixMilli(), to.UnixMilli()}
	if eventType != "" {
		query += ` AND type = ?`
		args = append(args, eventType)
	}
	query += ` GROUP BY bucket`

	var rows []bucketRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("count buckets: %w", err)
	}

	counts := make(map[int64]int64, len(rows))
	for _, r := range rows {
		counts[r.Bucket] += r.N
	}
	return counts, nil
}

// LoadEvents returns every event in [from, to) ordered by timestamp.
func (s *Store) LoadEvents(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var rows []struct {
		ID   string `db:"id"`
		Type string `db:"type"`
		TS   int64  `db:"ts"`
		Meta string `db:"meta"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, type, ts, meta FROM analytics
		WHERE ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC
	`), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		meta, err := unmarshalMeta(r.Meta)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", r.ID, err)
		}
		events = append(events, model.Event{
			ID:        r.ID,
			Type:      r.Type,
			Timestamp: time.UnixMilli(r.TS).UTC(),
			Metadata:  meta,
		})
	}
	return events, nil
}
