package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/coder/quartz"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/blogstore/internal/store"
)

// RunWithGolden runs a scenario on log with a mock clock at s.Now, fails t
// on any mismatched expectation, and compares the results against
// testdata/golden/{s.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, log store.EventLog) *Result {
	t.Helper()

	clock := quartz.NewMock(t)
	clock.Set(s.Now)

	result, err := Run(context.Background(), s, log, clock)
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", s.Name, msg)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return result
}
