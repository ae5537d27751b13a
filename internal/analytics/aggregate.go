package analytics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"

	"github.com/roach88/blogstore/internal/model"
)

const (
	day = 24 * time.Hour

	// DefaultWeeklyDays is the window WeeklyAverages uses for days <= 0.
	DefaultWeeklyDays = 28
)

// Counter is what the Aggregator needs from the event log. store.EventLog
// implements it.
type Counter interface {
	CountBuckets(ctx context.Context, from, to time.Time, eventType string, width time.Duration) (map[int64]int64, error)
}

// Aggregator turns the event log into hourly, daily and weekday series. An
// empty eventType in any query means every type.
type Aggregator struct {
	counter Counter
	clock   quartz.Clock
}

// NewAggregator creates an aggregator. clock supplies "today" for
// WeeklyAverages.
func NewAggregator(counter Counter, clock quartz.Clock) *Aggregator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Aggregator{counter: counter, clock: clock}
}

// ParseDay returns UTC midnight of the day named by s, which is either
// YYYY-MM-DD or an RFC 3339 timestamp (reduced to its UTC day).
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return startOfDay(t), nil
}

func startOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(day)
}

// Hourly counts the events of one UTC day per hour. The result always has
// 24 entries; hours without events are 0.
func (a *Aggregator) Hourly(ctx context.Context, date, eventType string) ([]int64, error) {
	start, err := ParseDay(date)
	if err != nil {
		return nil, err
	}

	buckets, err := a.counter.CountBuckets(ctx, start, start.Add(day), eventType, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("hourly %s: %w", date, err)
	}

	base := start.UnixMilli() / time.Hour.Milliseconds()
	counts := make([]int64, 24)
	for bucket, n := range buckets {
		if h := bucket - base; h >= 0 && h < 24 {
			counts[h] += n
		}
	}
	return counts, nil
}

// DailyTotals counts events per UTC day from the start of from through the
// end of to, in date order. Days without events are omitted.
func (a *Aggregator) DailyTotals(ctx context.Context, from, to, eventType string) ([]model.DailyTotal, error) {
	start, err := ParseDay(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDay(to)
	if err != nil {
		return nil, err
	}
	return a.dailyTotals(ctx, start, end, eventType)
}

func (a *Aggregator) dailyTotals(ctx context.Context, start, end time.Time, eventType string) ([]model.DailyTotal, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s after %s",
			ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	buckets, err := a.counter.CountBuckets(ctx, start, end.Add(day), eventType, day)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}

	totals := make([]model.DailyTotal, 0, len(buckets))
	for bucket, n := range buckets {
		if n == 0 {
			continue
		}
		date := time.UnixMilli(bucket * day.Milliseconds()).UTC()
		totals = append(totals, model.DailyTotal{Date: date.Format(time.DateOnly), Count: n})
	}
	slices.SortFunc(totals, func(x, y model.DailyTotal) int {
		switch {
		case x.Date < y.Date:
			return -1
		case x.Date > y.Date:
			return 1
		}
		return 0
	})
	return totals, nil
}

// WeeklyAverages averages the daily totals of the trailing days UTC days,
// today included, per weekday (index 0 is Sunday). Only days with at least
// one event contribute; a weekday with none averages to 0.
func (a *Aggregator) WeeklyAverages(ctx context.Context, days int, eventType string) ([]float64, error) {
	if days <= 0 {
		days = DefaultWeeklyDays
	}
	end := startOfDay(a.clock.Now())
	start := end.AddDate(0, 0, -(days - 1))

	totals, err := a.dailyTotals(ctx, start, end, eventType)
	if err != nil {
		return nil, err
	}

	var (
		sums [7]int64
		seen [7]int64
	)
	for _, t := range totals {
		d, err := ParseDay(t.Date)
		if err != nil {
			return nil, err
		}
		wd := d.Weekday()
		sums[wd] += t.Count
		seen[wd]++
	}

	averages := make([]float64, 7)
	for i := range averages {
		if seen[i] > 0 {
			averages[i] = float64(sums[i]) / float64(seen[i])
		}
	}
	return averages, nil
}
