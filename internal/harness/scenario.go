package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blogstore/internal/model"
)

// DefaultQueryType is used when a query omits type.
const DefaultQueryType = "visit"

// Query kinds.
const (
	QueryHourly = "hourly"
	QueryDaily  = "daily"
	QueryWeekly = "weekly"
)

// Scenario is one analytics test case.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Now         time.Time   `yaml:"now"`
	Events      []EventStep `yaml:"events"`
	Queries     []Query     `yaml:"queries"`
}

// EventStep records Count identical events. Count defaults to 1.
type EventStep struct {
	Type  string         `yaml:"type"`
	TS    time.Time      `yaml:"ts"`
	Count int            `yaml:"count,omitempty"`
	Meta  map[string]any `yaml:"meta,omitempty"`
}

// Query is one aggregation call and its expected outcome.
type Query struct {
	Query  string  `yaml:"query"`
	Date   string  `yaml:"date,omitempty"`
	From   string  `yaml:"from,omitempty"`
	To     string  `yaml:"to,omitempty"`
	Days   int     `yaml:"days,omitempty"`
	Type   *string `yaml:"type,omitempty"`
	Expect Expect  `yaml:"expect"`
}

// EventType resolves the query's type filter.
func (q Query) EventType() string {
	if q.Type == nil {
		return DefaultQueryType
	}
	return *q.Type
}

// Expect is the expected result of a query. Unset fields expect zero
// results: all-zero hours, no days, all-zero averages.
type Expect struct {
	Hours    map[int]int64      `yaml:"hours,omitempty"`
	Days     []model.DailyTotal `yaml:"days,omitempty"`
	Averages []float64          `yaml:"averages,omitempty"`
	Error    string             `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now.IsZero() {
		return fmt.Errorf("now is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, ev := range s.Events {
		if ev.TS.IsZero() {
			return fmt.Errorf("events[%d]: ts is required", i)
		}
		if ev.Count < 0 {
			return fmt.Errorf("events[%d]: count must not be negative", i)
		}
	}

	for i, q := range s.Queries {
		if err := validateQuery(q); err != nil {
			return fmt.Errorf("queries[%d]: %w", i, err)
		}
	}
	return nil
}

func validateQuery(q Query) error {
	switch q.Query {
	case QueryHourly:
		if q.Date == "" {
			return fmt.Errorf("hourly requires date")
		}
		for h := range q.Expect.Hours {
			if h < 0 || h > 23 {
				return fmt.Errorf("hour %d out of range", h)
			}
		}
	case QueryDaily:
		if q.From == "" || q.To == "" {
			return fmt.Errorf("daily requires from and to")
		}
	case QueryWeekly:
		if n := len(q.Expect.Averages); n != 0 && n != 7 {
			return fmt.Errorf("weekly expects 7 averages, got %d", n)
		}
	default:
		return fmt.Errorf("unknown query %q", q.Query)
	}
	return nil
}
