package analytics

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/blogstore/internal/model"
)

// Normalize fills the defaults of an event about to be stored: a missing
// type becomes model.DefaultEventType, a zero timestamp becomes now, nil
// metadata becomes an empty map, and an empty id becomes newID(). Types are
// trimmed and NFC-normalized so visually equal types bucket together.
func Normalize(ev model.Event, now time.Time, newID func() string) model.Event {
	ev.Type = norm.NFC.String(strings.TrimSpace(ev.Type))
	if ev.Type == "" {
		ev.Type = model.DefaultEventType
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	ev.Timestamp = ev.Timestamp.UTC()
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	return ev
}

// NewEventID returns a time-ordered UUIDv7 string.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}
