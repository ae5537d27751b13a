package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CounterValue returns the stored seq for name.
func (s *Store) CounterValue(ctx context.Context, name string) (int64, bool, error) {
	if err := s.checkOpen(); err != nil {
		return 0, false, err
	}

	var seq int64
	err := s.db.GetContext(ctx, &seq, s.db.Rebind(`SELECT seq FROM counters WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get counter %q: %w", name, err)
	}
	return seq, true, nil
}

// CreateCounter inserts the counter unless a row for name already exists.
// The existing row always wins, so concurrent bootstraps converge on the
// first writer's seq.
func (s *Store) CreateCounter(ctx context.Context, name string, seq int64) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO counters (name, seq) VALUES (?, ?)
		ON CONFLICT (name) DO NOTHING
	`), name, seq)
	if err != nil {
		return false, fmt.Errorf("create counter %q: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create counter %q: rows affected: %w", name, err)
	}
	return n == 1, nil
}

// Increment bumps the counter in a single upsert statement and returns the
// value held before the bump. A missing counter is created holding 2, as if
// it had held 1.
func (s *Store) Increment(ctx context.Context, name string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var seq int64
	err := s.db.GetContext(ctx, &seq, s.db.Rebind(`
		INSERT INTO counters (name, seq) VALUES (?, 2)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`), name)
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", name, err)
	}
	return seq - 1, nil
}
