package horus

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a UTC instant stored as an ISO-8601 string in documents.
// Older tools wrote naive timestamps without a zone; those are read as UTC.
// A decoded value keeps its original text and writes it back unchanged
// until it is replaced.
type Timestamp struct {
	time.Time
	raw string
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// IsZero reports a timestamp that was neither set nor read from a document,
// so omitzero fields stay absent.
func (t Timestamp) IsZero() bool {
	return t.raw == "" && t.Time.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.raw != "" {
		return []byte(t.raw), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{raw: "null"}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{raw: string(b)}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed.UTC(), raw: string(b)}
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}
