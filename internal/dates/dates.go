package dates

import (
	"strings"
	"time"
)

// Layouts accepted for feed dates, most common first. Date-only values are
// calendar dates in the display location, never shifted from UTC.
var layouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Parse reads a feed date. The second return value is false when s is empty
// or matches none of the known layouts.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// Format renders s as DD.MM.YYYY using calendar fields in loc. Unparsable
// input is returned unchanged.
func Format(s string, loc *time.Location) string {
	t, ok := Parse(s, loc)
	if !ok {
		return s
	}
	return t.Format("02.01.2006")
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Compact renders the date part of t as YYYYMMDD.
func Compact(t time.Time) string {
	return t.Format("20060102")
}

// Feed events carry no time of day, so reminders use a fixed evening slot.
const (
	reminderStartHour = 18
	reminderDuration  = 90 * time.Minute
)

// ReminderWindow returns the 18:00–19:30 UTC slot on the calendar date of s.
func ReminderWindow(s string, loc *time.Location) (start, end time.Time, ok bool) {
	t, ok := Parse(s, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := t.Date()
	start = time.Date(y, m, d, reminderStartHour, 0, 0, 0, time.UTC)
	return start, start.Add(reminderDuration), true
}
