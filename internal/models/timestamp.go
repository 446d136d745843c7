package models

import (
	"strings"
	"time"
)

// TimeLayout is the on-disk timestamp format shared with the ledger files
// produced by earlier versions of the tool.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp serializes as a local-time "2006-01-02 15:04:05" string.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(TimeLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) Equal(other Timestamp) bool {
	return t.Time.Equal(other.Time)
}
