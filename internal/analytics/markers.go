package analytics

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blogstore/internal/model"
)

// DefaultMarkersPath is where LoadVersionMarkers looks when given "".
const DefaultMarkersPath = "./version_releases.json"

type rawMarker struct {
	Version string `yaml:"version"`
	TS      string `yaml:"ts"`
}

// LoadVersionMarkers reads release markers from a JSON or YAML list of
// {version, ts} objects. Entries missing either field, or with a ts that
// is not RFC 3339, are skipped. A missing or unreadable file yields an
// empty list.
func LoadVersionMarkers(path string) []model.VersionMarker {
	markers, err := ReadVersionMarkers(path)
	if err != nil {
		return []model.VersionMarker{}
	}
	return markers
}

// ReadVersionMarkers is LoadVersionMarkers with the read error exposed.
func ReadVersionMarkers(path string) ([]model.VersionMarker, error) {
	if path == "" {
		path = DefaultMarkersPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}

	var raw []rawMarker
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse markers %s: %w", path, err)
	}

	markers := make([]model.VersionMarker, 0, len(raw))
	for _, m := range raw {
		if m.Version == "" || m.TS == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, m.TS)
		if err != nil {
			continue
		}
		markers = append(markers, model.VersionMarker{Version: m.Version, Timestamp: ts.UTC()})
	}
	return markers, nil
}
