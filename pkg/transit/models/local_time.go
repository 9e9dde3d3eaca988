package models

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime holds a wall-clock timestamp published without a zone offset.
// The CTA trackers report times in agency-local time, so the value is only
// meaningful once anchored to a location with In.
type LocalTime struct {
	time.Time
}

var localTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"20060102 15:04",
	"20060102 15:04:05",
}

// UnmarshalJSON parses the tracker formats. Unparseable values decode to the
// zero time instead of failing the surrounding document.
func (lt *LocalTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		return nil
	}

	t, err := ParseLocalTime(s)
	if err != nil {
		lt.Time = time.Time{}
		return nil
	}
	lt.Time = t
	return nil
}

// MarshalJSON writes the wall-clock value back out in the tracker format.
func (lt LocalTime) MarshalJSON() ([]byte, error) {
	if lt.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("\"%s\"", lt.Time.Format(localTimeFormats[0]))), nil
}

// In anchors the wall-clock value to loc. The zero value stays zero.
func (lt LocalTime) In(loc *time.Location) time.Time {
	if lt.Time.IsZero() {
		return time.Time{}
	}
	t := lt.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// ParseLocalTime parses s with any of the tracker formats.
func ParseLocalTime(s string) (time.Time, error) {
	var parseErr error
	for _, format := range localTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: %w", s, parseErr)
}
