package model

import "time"

// DefaultEventType is used when an event is recorded without a type.
const DefaultEventType = "event"

// Event is one analytics record. Events are append-only: once written they
// are never updated or deleted.
type Event struct {
	ID        string         `json:"id" msgpack:"id"`
	Type      string         `json:"type" msgpack:"type"`
	Timestamp time.Time      `json:"ts" msgpack:"ts"`
	Metadata  map[string]any `json:"meta" msgpack:"meta"`
}

// DailyTotal is the number of matching events on one UTC calendar day.
type DailyTotal struct {
	Date  string `json:"date" yaml:"date"` // YYYY-MM-DD
	Count int64  `json:"count" yaml:"count"`
}

// VersionMarker annotates an analytics chart with a release.
type VersionMarker struct {
	Version   string    `json:"version" yaml:"version"`
	Timestamp time.Time `json:"ts" yaml:"ts"`
}
