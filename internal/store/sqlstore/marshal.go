package sqlstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/blogstore/internal/model"
)

// marshalColumn converts a list or map field to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled so that user content
// (comments, messages) is stored byte-for-byte.
func marshalColumn(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalColumn parses JSON TEXT into dst. Empty and null columns leave
// dst untouched so that Normalize can fill the default.
func unmarshalColumn(data string, dst any) error {
	if data == "" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), dst)
}

// unmarshalMeta parses an event metadata column. Numbers are kept as
// json.Number to avoid float64 precision loss for large integers.
func unmarshalMeta(data string) (map[string]any, error) {
	meta := map[string]any{}
	if data == "" || data == "{}" {
		return meta, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}

// formatTime renders t as RFC 3339 in UTC. The zero time is stored as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// normalizeComments and normalizeMessages pin nested timestamps to UTC so
// decoded records compare equal regardless of the writer's location.
func normalizeComments(cs []model.Comment) []model.Comment {
	for i := range cs {
		cs[i].Date = cs[i].Date.UTC()
	}
	return cs
}

func normalizeMessages(ms []model.Message) []model.Message {
	for i := range ms {
		ms[i].Date = ms[i].Date.UTC()
	}
	return ms
}
