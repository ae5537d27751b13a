// Package harness runs analytics scenarios: a fixed clock, a list of
// events to record, and aggregation queries with their expected results.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	now: 2024-01-14T12:00:00Z
//	events:
//	  - type: visit
//	    ts: 2024-01-01T10:15:00Z
//	    count: 2
//	queries:
//	  - query: hourly
//	    date: "2024-01-01"
//	    expect:
//	      hours: {10: 2}
//	  - query: daily
//	    from: "2024-01-01"
//	    to: "2024-01-02"
//	    type: ""
//	    expect:
//	      days: [{date: "2024-01-01", count: 2}]
//	  - query: weekly
//	    days: 14
//	    expect:
//	      averages: [0, 2, 0, 0, 0, 0, 0]
//
// Events go through an analytics.Recorder, so a scenario covers the whole
// record-then-aggregate path. An omitted query type means "visit"; an empty
// one means every type. Hourly expectations list only non-zero hours.
// An expect.error clause matches a substring of the query's error instead.
package harness
