package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// AssertionError describes a query whose result did not match.
type AssertionError struct {
	Query    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Query, e.Expected, e.Actual)
}

func checkQuery(q Query, r QueryResult) error {
	if q.Expect.Error != "" {
		if !strings.Contains(r.Error, q.Expect.Error) {
			return &AssertionError{Query: q.Query, Expected: fmt.Sprintf("error containing %q", q.Expect.Error), Actual: describeResult(r)}
		}
		return nil
	}
	if r.Error != "" {
		return &AssertionError{Query: q.Query, Expected: "no error", Actual: "error " + r.Error}
	}

	switch q.Query {
	case QueryHourly:
		want := make([]int64, 24)
		for h, n := range q.Expect.Hours {
			want[h] = n
		}
		if !slices.Equal(want, r.Hours) {
			return &AssertionError{Query: q.Query, Expected: fmt.Sprint(want), Actual: fmt.Sprint(r.Hours)}
		}
	case QueryDaily:
		if !slices.Equal(q.Expect.Days, r.Days) {
			return &AssertionError{Query: q.Query, Expected: fmt.Sprint(q.Expect.Days), Actual: fmt.Sprint(r.Days)}
		}
	case QueryWeekly:
		want := q.Expect.Averages
		if want == nil {
			want = make([]float64, 7)
		}
		if !floatsClose(want, r.Averages) {
			return &AssertionError{Query: q.Query, Expected: fmt.Sprint(want), Actual: fmt.Sprint(r.Averages)}
		}
	}
	return nil
}

func floatsClose(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return math.Abs(x-y) < 1e-9
	})
}

func describeResult(r QueryResult) string {
	if r.Error != "" {
		return "error " + r.Error
	}
	return "success"
}
