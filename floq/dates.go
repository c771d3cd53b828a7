package floq

import (
	"fmt"
	"time"
)

// DateLayout is the date format used by the API and on the command line.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Week returns Monday and Sunday of the week containing date.
func Week(date time.Time) (monday, sunday time.Time) {
	date = Day(date)
	daysFromMonday := (int(date.Weekday()) + 6) % 7
	monday = date.AddDate(0, 0, -daysFromMonday)
	return monday, monday.AddDate(0, 0, 6)
}
