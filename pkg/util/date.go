package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD, RFC3339 or unix seconds and returns the
// UTC calendar date. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Truncate(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Truncate(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// Truncate drops the time of day in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DateRange parses optional bounds. An empty bound stays zero; a bound
// that does not parse, or from after to, is an error.
func DateRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	if from != "" {
		var ok bool
		if f, ok = ParseDate(from); !ok {
			return f, t, fmt.Errorf("invalid from date %q", from)
		}
	}
	if to != "" {
		var ok bool
		if t, ok = ParseDate(to); !ok {
			return f, t, fmt.Errorf("invalid to date %q", to)
		}
	}
	if !f.IsZero() && !t.IsZero() && f.After(t) {
		return f, t, fmt.Errorf("from %s is after to %s", FormatDate(f), FormatDate(t))
	}
	return f, t, nil
}
