package testutil

import (
	"testing"
	"time"

	"github.com/coder/quartz"
)

// Day parses a YYYY-MM-DD date as UTC midnight.
func Day(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

// MockClockAt returns a quartz mock clock set to at.
func MockClockAt(t *testing.T, at time.Time) *quartz.Mock {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(at)
	return clock
}
