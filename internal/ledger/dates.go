package ledger

import (
	"strings"
	"time"
)

// DateLayout is the wire format for report dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(field, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, &InputError{Field: field, Reason: "expected YYYY-MM-DD", Err: err}
	}
	return t, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayBefore(t time.Time) time.Time {
	return dateOnly(t).AddDate(0, 0, -1)
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func yearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func isNewYearsDay(t time.Time) bool {
	return t.Month() == time.January && t.Day() == 1
}
