package harness

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/coder/quartz"

	"github.com/roach88/blogstore/internal/analytics"
	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	Scenario string        `json:"scenario"`
	Recorded int           `json:"recorded"`
	Queries  []QueryResult `json:"queries"`

	// Pass is true when every query matched its expectation.
	Pass bool `json:"-"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"-"`
}

// QueryResult is what one query actually returned.
type QueryResult struct {
	Query    string             `json:"query"`
	Type     string             `json:"type"`
	Hours    []int64            `json:"hours,omitempty"`
	Days     []model.DailyTotal `json:"days,omitempty"`
	Averages []float64          `json:"averages,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func newResult(name string) *Result {
	return &Result{Scenario: name, Queries: []QueryResult{}, Pass: true, Errors: []string{}}
}

func (r *Result) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.Pass = false
}

// Run records the scenario's events into log, then evaluates every query
// with clock standing in for the wall clock. clock should read s.Now.
//
// The returned error covers setup failures only; query mismatches are
// reported through Result.Pass and Result.Errors.
func Run(ctx context.Context, s *Scenario, log store.EventLog, clock quartz.Clock) (*Result, error) {
	result := newResult(s.Name)

	recorded, err := recordEvents(ctx, s, log, clock)
	if err != nil {
		return nil, err
	}
	result.Recorded = recorded

	agg := analytics.NewAggregator(log, clock)
	for i, q := range s.Queries {
		qr := runQuery(ctx, agg, q)
		result.Queries = append(result.Queries, qr)
		if err := checkQuery(q, qr); err != nil {
			result.addError(fmt.Errorf("queries[%d]: %w", i, err))
		}
	}
	return result, nil
}

// recordEvents pushes every event through a Recorder and waits for it to
// drain.
func recordEvents(ctx context.Context, s *Scenario, log store.EventLog, clock quartz.Clock) (int, error) {
	total := 0
	for _, ev := range s.Events {
		total += max(ev.Count, 1)
	}

	seq := 0
	rec := analytics.NewRecorder(log, analytics.RecorderOptions{
		QueueSize: max(total, 1),
		Logger:    slog.New(slog.DiscardHandler),
		Clock:     clock,
		NewID: func() string {
			seq++
			return fmt.Sprintf("%s-%06d", s.Name, seq)
		},
	})

	for _, step := range s.Events {
		for range max(step.Count, 1) {
			ev := model.Event{Type: step.Type, Timestamp: step.TS, Metadata: maps.Clone(step.Meta)}
			if _, err := rec.Record(ev); err != nil {
				_ = rec.Close(ctx)
				return 0, fmt.Errorf("record event: %w", err)
			}
		}
	}
	if err := rec.Close(ctx); err != nil {
		return 0, fmt.Errorf("drain recorder: %w", err)
	}
	if err, ok := <-rec.Errors(); ok {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return total, nil
}

func runQuery(ctx context.Context, agg *analytics.Aggregator, q Query) QueryResult {
	qr := QueryResult{Query: q.Query, Type: q.EventType()}

	var err error
	switch q.Query {
	case QueryHourly:
		qr.Hours, err = agg.Hourly(ctx, q.Date, qr.Type)
	case QueryDaily:
		qr.Days, err = agg.DailyTotals(ctx, q.From, q.To, qr.Type)
	case QueryWeekly:
		qr.Averages, err = agg.WeeklyAverages(ctx, q.Days, qr.Type)
	}
	if err != nil {
		qr.Error = err.Error()
	}
	return qr
}
